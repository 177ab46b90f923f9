package ollama

import (
	"github.com/mikey/mailtagger/internal/config"
	"github.com/mikey/mailtagger/internal/core"
	"go.uber.org/zap"
)

// Factory creates new instances of the Ollama backend
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new factory for Ollama backends
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateBackend creates a new Ollama backend from configuration
func (f *Factory) CreateBackend() (core.LLMBackend, error) {
	ollamaCfg := f.cfg.GetOllama()

	client := NewHTTPClient(ollamaCfg.BaseURL)

	return NewBackend(client, ollamaCfg.ModelName, f.logger), nil
}
