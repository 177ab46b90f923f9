package core

import (
	"context"
	"time"
)

// LLMBackend is the capability interface for one configured LLM provider.
// When wantJSON is true the backend requests structured JSON output from
// the model; backends that cannot enforce it simply pass the request through.
type LLMBackend interface {
	// Send submits a system+user prompt pair and returns the raw response text
	Send(ctx context.Context, system, user string, wantJSON bool) (string, error)
}

// Mailbox is the narrow interface the daemon uses to talk to the mail provider.
// Query syntax is provider-specific and treated as an opaque configured string.
type Mailbox interface {
	// ListCandidates returns up to limit messages matching the query
	ListCandidates(ctx context.Context, query string, limit int64) ([]*Email, error)

	// ApplyLabel attaches the category label to a message
	ApplyLabel(ctx context.Context, messageID string, category Category) error

	// MarkTriaged marks a message so future candidate queries exclude it
	MarkTriaged(ctx context.Context, messageID string) error
}

// PromptRepository stores prompts, test runs and classification logs.
// Exactly one prompt is active at any time; SetActivePrompt must flip the
// active flag transactionally so readers never observe zero or two active rows.
type PromptRepository interface {
	// GetActivePrompt returns the single active prompt, lazily creating
	// and activating the built-in default when the store is empty
	GetActivePrompt(ctx context.Context) (*Prompt, error)

	// SetActivePrompt upserts a prompt by name and atomically makes it the active one
	SetActivePrompt(ctx context.Context, name, content string) (*Prompt, error)

	// LogClassification appends a production classification record
	LogClassification(ctx context.Context, rec *ClassificationRecord) error

	// SaveTestResult appends a result from an ad-hoc prompt test run
	SaveTestResult(ctx context.Context, res *TestResult) error

	// RecentTestResults returns the most recent test results, newest first
	RecentTestResults(ctx context.Context, limit int) ([]*TestResult, error)

	// Statistics aggregates classification logs for the active prompt over the last N days
	Statistics(ctx context.Context, days int) (*Statistics, error)

	// PruneLogs removes classification logs and test results older than the given age
	PruneLogs(ctx context.Context, olderThan time.Duration) error
}
