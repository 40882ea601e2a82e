package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/distortia/internal/apperr"
	"github.com/ppiankov/distortia/internal/catalog"
	"github.com/ppiankov/distortia/internal/feedback"
	"github.com/ppiankov/distortia/internal/model"
	"github.com/ppiankov/distortia/internal/pipeline"
	"github.com/ppiankov/distortia/internal/worker"
)

// Version is set at build time
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "distortia",
	Short: "Distortia - Cognitive distortion detection for text (learning tool)",
	Long: `Distortia splits text into sentences, asks a classifier which cognitive
distortion (if any) each sentence shows, and lets you review the predictions.

Corrections you submit are collected so the classifier can be retrained.

Predictions are not psychological advice.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command and prints a readable error
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err))
	}
	return err
}

// errorMessage prefers the user-facing message of classified errors
func errorMessage(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) {
		if verbose {
			return fmt.Sprintf("%s (%v)", apperr.UserMessage(err), err)
		}
		return apperr.UserMessage(err)
	}
	return err.Error()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of Distortia and the label catalog in use.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cat, err := catalog.Load(cfg.Catalog.Path)
		if err != nil {
			return err
		}
		fmt.Printf("distortia %s (label catalog v%d, %d labels)\n", Version, cat.Version(), len(cat.Labels()))
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.distortia/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	// Best effort: the classifier deployment ships BACKEND_URL and API_KEY in .env
	_ = godotenv.Load()

	if err := setDefaults(viper.GetViper(), model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering defaults: %v\n", err)
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(filepath.Join(home, ".distortia"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match DISTORTIA_*, e.g. DISTORTIA_CLASSIFIER_BASE_URL
	viper.SetEnvPrefix("DISTORTIA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every key of cfg so env variables can override
// keys that appear in no config file
func setDefaults(v *viper.Viper, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}

	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for k, val := range node {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if child, ok := val.(map[string]any); ok {
				walk(key, child)
				continue
			}
			v.SetDefault(key, val)
		}
	}
	walk("", tree)

	// Omitted from the YAML when empty
	v.SetDefault("classifier.api_key", "")
	v.SetDefault("feedback.api_key", "")
	return nil
}

// loadConfig resolves defaults, config file, env and flags into a Config
func loadConfig() (*model.Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Variables used by the original classifier deployment
	if url := os.Getenv("BACKEND_URL"); url != "" && !explicit(v, "classifier.base_url") {
		cfg.Classifier.BaseURL = strings.TrimRight(url, "/")
		if !explicit(v, "feedback.url") {
			cfg.Feedback.URL = cfg.Classifier.BaseURL + "/feedback"
		}
	}
	if key := os.Getenv("API_KEY"); key != "" && cfg.Feedback.APIKey == "" {
		cfg.Feedback.APIKey = key
	}
	if cfg.Classifier.APIKey == "" {
		switch cfg.Classifier.Provider {
		case "openai":
			cfg.Classifier.APIKey = os.Getenv("OPENAI_API_KEY")
		case "http":
			cfg.Classifier.APIKey = cfg.Feedback.APIKey
		}
	}
	// The default base URL points at the HTTP classifier; other providers
	// fall back to their own endpoints
	if cfg.Classifier.Provider != "http" && cfg.Classifier.Provider != "" && !explicit(v, "classifier.base_url") {
		cfg.Classifier.BaseURL = ""
		if cfg.Classifier.Provider == "ollama" {
			cfg.Classifier.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}

	cfg.Cache.Dir = expandHome(cfg.Cache.Dir)
	cfg.Store.Path = expandHome(cfg.Store.Path)
	cfg.Catalog.Path = expandHome(cfg.Catalog.Path)

	return cfg, nil
}

// explicit reports whether key came from the config file or a DISTORTIA_
// variable rather than the defaults
func explicit(v *viper.Viper, key string) bool {
	if v.InConfig(key) {
		return true
	}
	env := "DISTORTIA_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	return os.Getenv(env) != ""
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// newLogger builds the structured logger. Logs go to stderr so reports on
// stdout stay clean.
func newLogger(cfg model.LogConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.DisableStacktrace = true
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	return zc.Build()
}

// app is the wired runtime shared by the commands
type app struct {
	cfg      *model.Config
	logger   *zap.Logger
	catalog  *catalog.Catalog
	limiter  *worker.Limiter
	pipeline *pipeline.Pipeline
	sender   *feedback.Client
}

func newApp(cfg *model.Config) (*app, error) {
	if !cfg.Output.Verbose && cfg.Log.Level == "info" {
		cfg.Log.Level = "warn"
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}

	limiter, err := newLimiter(cfg)
	if err != nil {
		return nil, err
	}

	classifier, err := pipeline.NewClassifier(cfg, cat, limiter, logger)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		catalog:  cat,
		limiter:  limiter,
		pipeline: pipeline.NewPipeline(cfg, classifier, cat, logger),
		sender:   feedback.NewClient(cfg.Feedback.URL, cfg.Feedback.APIKey, cfg.Feedback.Timeout, limiter),
	}, nil
}

// newLimiter builds the shared per-host limiter, giving the feedback
// endpoint its own rate when one is configured
func newLimiter(cfg *model.Config) (*worker.Limiter, error) {
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	if cfg.Feedback.RequestsPerSecond > 0 {
		if err := limiter.SetHostRate(cfg.Feedback.URL, cfg.Feedback.RequestsPerSecond, cfg.Feedback.BurstSize); err != nil {
			return nil, fmt.Errorf("feedback rate limit: %w", err)
		}
	}
	return limiter, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}
