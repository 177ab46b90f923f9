package health

import (
	"context"
	"fmt"
	"os"

	"github.com/mikey/mailtagger/internal/config"
	"github.com/mikey/mailtagger/internal/core"
	"go.uber.org/zap"
)

// BackendChecker is the optional probe capability of an LLM backend
type BackendChecker interface {
	CheckHealth(ctx context.Context) error
}

// Gate verifies the daemon's dependencies once at startup. A failure aborts
// startup: an unreachable backend or missing credentials is treated as
// misconfiguration, not a transient condition, so there are no retries here
// and the gate never runs again mid-loop.
type Gate struct {
	backend         core.LLMBackend
	credentialsPath string
	tokenPath       string
	logger          *zap.Logger
}

// NewGate creates a startup health gate
func NewGate(backend core.LLMBackend, cfg *config.Config, logger *zap.Logger) *Gate {
	gmailCfg := cfg.GetGmail()
	return &Gate{
		backend:         backend,
		credentialsPath: gmailCfg.CredentialsPath,
		tokenPath:       gmailCfg.TokenPath,
		logger:          logger,
	}
}

// Check runs all startup checks. Everything must pass except the OAuth
// token file: missing token is an expected first-run state the daemon can
// wait out, so it only warns.
func (g *Gate) Check(ctx context.Context) error {
	if checker, ok := g.backend.(BackendChecker); ok {
		if err := checker.CheckHealth(ctx); err != nil {
			return fmt.Errorf("llm backend check failed: %w", err)
		}
		g.logger.Info("LLM backend check passed")
	} else {
		g.logger.Debug("LLM backend has no health probe, skipping")
	}

	if _, err := os.Stat(g.credentialsPath); err != nil {
		return fmt.Errorf("client credentials not found at %s: %w", g.credentialsPath, err)
	}

	if _, err := os.Stat(g.tokenPath); err != nil {
		g.logger.Warn("OAuth token not found; this is expected before first authorization",
			zap.String("path", g.tokenPath))
	}

	g.logger.Info("Health check passed")
	return nil
}
