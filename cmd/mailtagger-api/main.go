package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/mailtagger/internal/api"
	"github.com/mikey/mailtagger/internal/config"
	"github.com/mikey/mailtagger/internal/core"
	"github.com/mikey/mailtagger/internal/factory"
	"github.com/mikey/mailtagger/internal/logging"
	"go.uber.org/zap"
)

var (
	listenAddr = flag.String("listen", "", "Listen address (overrides api.listen_address)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
)

func main() {
	flag.Parse()

	// Initialize logger
	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.New()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize LLM backend
	backend, err := factory.NewLLMFactory(cfg, logger).CreateBackend()
	if err != nil {
		logger.Fatal("Failed to create LLM backend", zap.Error(err))
	}

	// Initialize prompt store
	prompts, err := factory.NewStoreFactory(cfg, logger).CreatePromptRepository()
	if err != nil {
		logger.Fatal("Failed to create prompt store", zap.Error(err))
	}

	// Initialize mailbox
	mailbox, err := factory.NewMailboxFactory(cfg, logger).CreateMailbox()
	if err != nil {
		logger.Fatal("Failed to create mailbox", zap.Error(err))
	}

	textProc := factory.NewTextProcessorFactory(logger).CreateTextProcessor()

	backoffBase, err := cfg.GetDuration("classifier.backoff_base")
	if err != nil {
		logger.Fatal("Invalid classifier.backoff_base", zap.Error(err))
	}
	classifier := core.NewClassifier(backend, logger, cfg.GetInt("classifier.max_attempts"), backoffBase)

	addr := *listenAddr
	if addr == "" {
		addr = cfg.GetString("api.listen_address")
	}

	handler := api.NewHandler(api.Deps{
		Prompts:     prompts,
		Mailbox:     mailbox,
		Classifier:  classifier,
		TextProc:    textProc,
		Logger:      logger,
		Query:       cfg.GetString("gmail.query"),
		MaxBodySize: cfg.GetInt("classifier.max_body_size"),
	})
	server := api.NewServer(addr, handler, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}

	if closer, ok := prompts.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close prompt store", zap.Error(err))
		}
	}
	if closer, ok := backend.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM backend", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
}
