package factory

import (
	"github.com/mikey/mailtagger/internal/adapters/gmail"
	"github.com/mikey/mailtagger/internal/config"
	"github.com/mikey/mailtagger/internal/core"
	"go.uber.org/zap"
)

// MailboxFactory creates mailbox providers
type MailboxFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewMailboxFactory creates a new mailbox factory
func NewMailboxFactory(cfg *config.Config, logger *zap.Logger) *MailboxFactory {
	return &MailboxFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateMailbox creates the Gmail mailbox from configuration
func (f *MailboxFactory) CreateMailbox() (core.Mailbox, error) {
	return gmail.NewMailbox(f.cfg.GetGmail(), f.logger)
}
