package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mailtagger/internal/config"
	"github.com/mikey/mailtagger/internal/core"
	"github.com/mikey/mailtagger/internal/daemon"
	"github.com/mikey/mailtagger/internal/factory"
	"github.com/mikey/mailtagger/internal/health"
	"github.com/mikey/mailtagger/internal/logging"
	"github.com/mikey/mailtagger/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewMailboxFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}

	// Register LLM backend
	if err := container.Provide(func(f *factory.LLMFactory) (core.LLMBackend, error) {
		return f.CreateBackend()
	}); err != nil {
		return nil, err
	}

	// Register prompt repository
	if err := container.Provide(func(f *factory.StoreFactory) (core.PromptRepository, error) {
		return f.CreatePromptRepository()
	}); err != nil {
		return nil, err
	}

	// Register mailbox
	if err := container.Provide(func(f *factory.MailboxFactory) (core.Mailbox, error) {
		return f.CreateMailbox()
	}); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register classifier
	if err := container.Provide(func(backend core.LLMBackend, cfg *config.Config, logger *zap.Logger) (*core.Classifier, error) {
		backoffBase, err := cfg.GetDuration("classifier.backoff_base")
		if err != nil {
			return nil, err
		}
		return core.NewClassifier(backend, logger, cfg.GetInt("classifier.max_attempts"), backoffBase), nil
	}); err != nil {
		return nil, err
	}

	// Register categorizer service
	if err := container.Provide(func(
		mailbox core.Mailbox,
		classifier *core.Classifier,
		prompts core.PromptRepository,
		textProc *utils.TextProcessor,
		cfg *config.Config,
		logger *zap.Logger,
	) (*core.CategorizerService, error) {
		messagePause, err := cfg.GetDuration("daemon.message_pause")
		if err != nil {
			return nil, err
		}
		return core.NewCategorizerService(
			mailbox,
			classifier,
			prompts,
			textProc,
			logger,
			cfg.GetString("gmail.query"),
			cfg.GetInt("classifier.max_body_size"),
			messagePause,
		), nil
	}); err != nil {
		return nil, err
	}

	// Register health gate
	if err := container.Provide(health.NewGate); err != nil {
		return nil, err
	}

	// Register daemon
	if err := container.Provide(daemon.New); err != nil {
		return nil, err
	}

	return container, nil
}
