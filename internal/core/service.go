package core

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mailtagger/internal/utils"
)

// CategorizerService runs one processing cycle at a time: it lists candidate
// messages from the mailbox, classifies each with the active prompt, applies
// the resulting label, and tallies success and error counts. Messages are
// processed strictly one at a time to bound load on the mailbox API and on
// the LLM backend.
type CategorizerService struct {
	mailbox      Mailbox
	classifier   *Classifier
	prompts      PromptRepository
	textProc     *utils.TextProcessor
	logger       *zap.Logger
	query        string
	maxBodySize  int
	messagePause time.Duration
}

// NewCategorizerService creates a new categorizer service
func NewCategorizerService(
	mailbox Mailbox,
	classifier *Classifier,
	prompts PromptRepository,
	textProc *utils.TextProcessor,
	logger *zap.Logger,
	query string,
	maxBodySize int,
	messagePause time.Duration,
) *CategorizerService {
	return &CategorizerService{
		mailbox:      mailbox,
		classifier:   classifier,
		prompts:      prompts,
		textProc:     textProc,
		logger:       logger,
		query:        query,
		maxBodySize:  maxBodySize,
		messagePause: messagePause,
	}
}

// RunOnce executes one processing cycle. The active prompt is resolved once
// up front, so a prompt update mid-cycle takes effect on the next cycle. A
// failure on one message is logged and counted; it never aborts the cycle.
// Context cancellation is honored between messages: the in-flight message
// finishes, the remaining candidates are skipped.
func (s *CategorizerService) RunOnce(ctx context.Context, dryRun bool, maxMessages int64) (*CycleStats, error) {
	prompt, err := s.prompts.GetActivePrompt(ctx)
	if err != nil {
		return nil, err
	}

	messages, err := s.mailbox.ListCandidates(ctx, s.query, maxMessages)
	if err != nil {
		return nil, err
	}

	stats := &CycleStats{}
	if len(messages) == 0 {
		s.logger.Debug("No candidate messages", zap.String("query", s.query))
		return stats, nil
	}

	for _, msg := range messages {
		if ctx.Err() != nil {
			s.logger.Info("Cycle interrupted, skipping remaining messages",
				zap.Int("remaining", len(messages)-stats.Processed-stats.Errors))
			break
		}
		s.processMessage(ctx, msg, prompt, dryRun, stats)
	}

	s.logger.Info("Cycle complete",
		zap.Int("processed", stats.Processed),
		zap.Int("errors", stats.Errors))
	return stats, nil
}

func (s *CategorizerService) processMessage(ctx context.Context, msg *Email, prompt *Prompt, dryRun bool, stats *CycleStats) {
	body := s.textProc.ProcessText(ExtractText(msg.Body), s.maxBodySize)

	start := time.Now()
	verdict, err := s.classifier.Classify(ctx, msg.From, msg.Subject, body, prompt)
	if err != nil {
		s.logger.Error("Failed to classify message",
			zap.String("message_id", msg.ID),
			zap.String("stage", "classify"),
			zap.Error(err))
		stats.Errors++
		return
	}
	elapsed := time.Since(start)

	s.logger.Info("Classified message",
		zap.String("message_id", msg.ID),
		zap.String("category", string(verdict.Category)),
		zap.Float64("confidence", verdict.Confidence),
		zap.String("subject", msg.Subject),
		zap.String("reason", verdict.Reason),
		zap.Bool("dry_run", dryRun))

	if !dryRun {
		if verdict.Category != CategoryNone {
			if err := s.mailbox.ApplyLabel(ctx, msg.ID, verdict.Category); err != nil {
				s.logger.Error("Failed to apply label",
					zap.String("message_id", msg.ID),
					zap.String("stage", "label"),
					zap.Error(err))
				stats.Errors++
				return
			}
		}
		if err := s.mailbox.MarkTriaged(ctx, msg.ID); err != nil {
			s.logger.Error("Failed to mark message triaged",
				zap.String("message_id", msg.ID),
				zap.String("stage", "triage"),
				zap.Error(err))
			stats.Errors++
			return
		}
		s.pause(ctx)
	}

	// Statistics are best-effort: a log write failure must not fail the message.
	if verdict.Category != CategoryNone {
		rec := &ClassificationRecord{
			PromptID:       prompt.ID,
			Category:       verdict.Category,
			Confidence:     verdict.Confidence,
			ProcessingTime: elapsed,
			Timestamp:      time.Now(),
		}
		if err := s.prompts.LogClassification(ctx, rec); err != nil {
			s.logger.Warn("Failed to record classification",
				zap.String("message_id", msg.ID),
				zap.Error(err))
		}
	}

	stats.Processed++
}

// pause sleeps briefly between label mutations to stay friendly to the
// mailbox API rate limits
func (s *CategorizerService) pause(ctx context.Context) {
	if s.messagePause <= 0 {
		return
	}
	select {
	case <-time.After(s.messagePause):
	case <-ctx.Done():
	}
}
