package daemon

import (
	"context"
	"time"

	"github.com/mikey/mailtagger/internal/config"
	"github.com/mikey/mailtagger/internal/core"
	"github.com/mikey/mailtagger/internal/health"
	"go.uber.org/zap"
)

// Daemon drives the processing loop: one startup health check, then a cycle
// every poll interval until the context is cancelled. Cycle failures are
// logged and the loop keeps going; only a failed health check or a cancelled
// context terminates the daemon.
type Daemon struct {
	service      *core.CategorizerService
	gate         *health.Gate
	prompts      core.PromptRepository
	logger       *zap.Logger
	pollInterval time.Duration
	maxMessages  int64
	dryRun       bool
	logRetention time.Duration
	lastPrune    time.Time
}

// New creates a new daemon
func New(service *core.CategorizerService, gate *health.Gate, prompts core.PromptRepository, cfg *config.Config, logger *zap.Logger) (*Daemon, error) {
	pollInterval, err := cfg.GetDuration("daemon.poll_interval")
	if err != nil {
		return nil, err
	}
	logRetention, err := cfg.GetDuration("store.log_retention")
	if err != nil {
		return nil, err
	}
	return &Daemon{
		service:      service,
		gate:         gate,
		prompts:      prompts,
		logger:       logger,
		pollInterval: pollInterval,
		maxMessages:  cfg.GetInt64("daemon.max_messages"),
		dryRun:       cfg.GetBool("daemon.dry_run"),
		logRetention: logRetention,
	}, nil
}

// Run blocks until ctx is cancelled or the startup health check fails. A
// cancellation that arrives mid-cycle is honored by the service between
// messages; Run then logs lifetime totals and returns nil.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.gate.Check(ctx); err != nil {
		return err
	}

	d.logger.Info("Daemon started",
		zap.Duration("poll_interval", d.pollInterval),
		zap.Int64("max_messages", d.maxMessages),
		zap.Bool("dry_run", d.dryRun))

	var runs, processed, failures int
loop:
	for {
		d.maybePrune(ctx)

		stats, err := d.service.RunOnce(ctx, d.dryRun, d.maxMessages)
		if err != nil {
			if ctx.Err() != nil {
				break loop
			}
			d.logger.Error("Cycle failed", zap.Error(err))
		} else {
			runs++
			processed += stats.Processed
			failures += stats.Errors
		}

		select {
		case <-ctx.Done():
			d.logger.Info("Shutdown requested")
			break loop
		case <-time.After(d.pollInterval):
		}
	}

	d.logger.Info("Daemon stopped",
		zap.Int("runs", runs),
		zap.Int("messages_processed", processed),
		zap.Int("message_errors", failures))
	return nil
}

// maybePrune drops stale classification logs and test results at most once a
// day. Pruning is best-effort housekeeping; failures are logged and skipped.
func (d *Daemon) maybePrune(ctx context.Context) {
	if d.logRetention <= 0 || time.Since(d.lastPrune) < 24*time.Hour {
		return
	}
	d.lastPrune = time.Now()

	if err := d.prompts.PruneLogs(ctx, d.logRetention); err != nil {
		d.logger.Warn("Failed to prune old logs", zap.Error(err))
		return
	}
	d.logger.Debug("Pruned stale logs", zap.Duration("retention", d.logRetention))
}
