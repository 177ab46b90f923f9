package factory

import (
	"fmt"

	"github.com/mikey/mailtagger/internal/adapters/bedrock"
	"github.com/mikey/mailtagger/internal/adapters/gemini"
	"github.com/mikey/mailtagger/internal/adapters/ollama"
	"github.com/mikey/mailtagger/internal/adapters/openai"
	"github.com/mikey/mailtagger/internal/config"
	"github.com/mikey/mailtagger/internal/core"
	"go.uber.org/zap"
)

// LLMFactory creates LLM backends
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateBackend creates a new LLM backend based on the configuration
func (f *LLMFactory) CreateBackend() (core.LLMBackend, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "openai":
		return openai.NewFactory(f.cfg, f.logger).CreateBackend()
	case "ollama":
		return ollama.NewFactory(f.cfg, f.logger).CreateBackend()
	case "gemini":
		return gemini.NewFactory(f.cfg, f.logger).CreateBackend()
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger).CreateBackend()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}
