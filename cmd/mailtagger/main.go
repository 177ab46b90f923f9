package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/mailtagger/internal/core"
	"github.com/mikey/mailtagger/internal/daemon"
	"github.com/mikey/mailtagger/internal/di"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	d *daemon.Daemon,
	backend core.LLMBackend,
	prompts core.PromptRepository,
) error {
	defer logger.Sync()

	// SIGINT and SIGTERM cancel the context; the daemon finishes the
	// in-flight message and exits cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := d.Run(ctx)

	// Close any resources that need closing
	if closer, ok := backend.(interface{ Close() error }); ok {
		if cerr := closer.Close(); cerr != nil {
			logger.Error("Failed to close LLM backend", zap.Error(cerr))
		}
	}
	if closer, ok := prompts.(interface{ Close() error }); ok {
		if cerr := closer.Close(); cerr != nil {
			logger.Error("Failed to close prompt store", zap.Error(cerr))
		}
	}

	if err != nil {
		logger.Error("Daemon failed", zap.Error(err))
		return err
	}

	logger.Info("Shutdown complete")
	return nil
}
