package classify

import (
	"fmt"
	"strings"
)

// NewClassifier creates a classifier based on configuration
func NewClassifier(config Config) (Classifier, error) {
	switch strings.ToLower(config.Provider) {
	case "http", "":
		return NewHTTPClassifier(config)

	case "openai":
		return NewOpenAIClassifier(config)

	case "ollama":
		return NewOllamaClassifier(config)

	default:
		return nil, fmt.Errorf("unknown classifier provider: %s (supported: http, openai, ollama)", config.Provider)
	}
}
