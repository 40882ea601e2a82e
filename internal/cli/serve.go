package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/distortia/internal/feedback"
	"github.com/ppiankov/distortia/internal/server"
)

var (
	serveAddr      string
	serveCollector bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API over HTTP",
	Long: `Serve exposes the analysis pipeline over HTTP:
  POST /api/analyze    {"text": "..."} -> per-sentence report
  POST /api/feedback   feedback record, relayed to the feedback endpoint
  GET  /api/labels     label catalog
  GET  /health         classifier reachability

With --collector the server also stores feedback in the local sqlite
database:
  POST /feedback       store one feedback record
  GET  /feedback       list stored feedback
  GET  /feedback/stats counts

Example:
  distortia serve --addr :8080
  distortia serve --collector`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	serveCmd.Flags().BoolVar(&serveCollector, "collector", false, "store feedback locally and serve POST /feedback")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveCollector {
		cfg.Server.Collector = true
	}
	// Servers log at info unless configured otherwise
	cfg.Output.Verbose = true

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	opts := server.Options{
		Addr:            cfg.Server.Addr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Disclaimer:      cfg.Output.Disclaimer,
	}

	if cfg.Server.Collector {
		store, err := feedback.OpenStore(cfg.Store.Path, a.logger)
		if err != nil {
			return fmt.Errorf("open feedback store: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				a.logger.Warn("Failed to close feedback store", zap.Error(err))
			}
		}()
		opts.Store = store
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.NewServer(a.pipeline, a.sender, opts, a.logger).Run(ctx)
}
