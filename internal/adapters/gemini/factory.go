package gemini

import (
	"github.com/mikey/mailtagger/internal/config"
	"github.com/mikey/mailtagger/internal/core"
	"go.uber.org/zap"
)

// Factory creates new instances of the Gemini backend
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new factory for Gemini backends
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateBackend creates a new Gemini backend from configuration
func (f *Factory) CreateBackend() (core.LLMBackend, error) {
	geminiCfg := f.cfg.GetGemini()

	return NewClient(
		geminiCfg.APIKey,
		geminiCfg.ModelName,
		geminiCfg.MaxTokens,
		geminiCfg.Temperature,
		geminiCfg.TopP,
		f.logger,
	)
}
