package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ClassificationError is returned when a message could not be classified
// after every retry was exhausted.
type ClassificationError struct {
	Err error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification failed: %v", e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// jsonOnlyInstruction is appended to the prompt on the relaxed retry, when
// the backend's structured output mode produced something unparsable.
const jsonOnlyInstruction = "\n\nIMPORTANT: Respond with ONLY a valid JSON object of the form " +
	`{"category": "ecommerce|political|none", "reason": "short explanation", "confidence": 0.9}. ` +
	"No additional text, no explanations outside the JSON."

// verdictResponse is the JSON shape the model is asked to produce
type verdictResponse struct {
	Category   string  `json:"category"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// Classifier asks the configured LLM backend to categorize one message at a
// time. Transport failures are retried with exponential backoff; an
// unparsable response gets exactly one extra attempt with structured-output
// enforcement relaxed.
type Classifier struct {
	backend       LLMBackend
	logger        *zap.Logger
	maxAttempts   int
	backoffBase   time.Duration
	backoffFactor float64
}

// NewClassifier creates a classifier around the given backend
func NewClassifier(backend LLMBackend, logger *zap.Logger, maxAttempts int, backoffBase time.Duration) *Classifier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Classifier{
		backend:       backend,
		logger:        logger,
		maxAttempts:   maxAttempts,
		backoffBase:   backoffBase,
		backoffFactor: 2,
	}
}

// Classify sends the active prompt plus the message details to the backend
// and parses the response into a Verdict. Missing or out-of-range fields are
// defaulted rather than treated as fatal: classification is best-effort, not
// a strict contract with the model.
func (c *Classifier) Classify(ctx context.Context, sender, subject, body string, prompt *Prompt) (*Verdict, error) {
	user := fmt.Sprintf("From: %s\nSubject: %s\nBody: %s", sender, subject, body)

	var raw string
	err := withRetry(ctx, c.maxAttempts, c.backoffBase, c.backoffFactor, func() error {
		var sendErr error
		raw, sendErr = c.backend.Send(ctx, prompt.Content, user, true)
		if sendErr != nil {
			c.logger.Warn("LLM request failed",
				zap.String("sender", sender),
				zap.Error(sendErr))
		}
		return sendErr
	})
	if err != nil {
		return nil, &ClassificationError{Err: err}
	}

	verdict, parseErr := parseVerdict(raw)
	if parseErr == nil {
		return verdict, nil
	}

	// One relaxed retry: drop JSON mode and spell the format out in the
	// prompt text instead. Some backends reject or mangle structured output.
	c.logger.Warn("Unparsable LLM response, retrying without structured output",
		zap.String("sender", sender),
		zap.Error(parseErr))

	raw, err = c.backend.Send(ctx, prompt.Content+jsonOnlyInstruction, user, false)
	if err != nil {
		return nil, &ClassificationError{Err: err}
	}
	if verdict, parseErr = parseVerdict(raw); parseErr != nil {
		return nil, &ClassificationError{Err: parseErr}
	}
	return verdict, nil
}

// parseVerdict parses the model response into a normalized Verdict. Models
// occasionally wrap the JSON object in prose, so when a direct parse fails
// the text between the outermost braces is tried before giving up.
func parseVerdict(raw string) (*Verdict, error) {
	var resp verdictResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no JSON object in response: %w", err)
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &resp); err != nil {
			return nil, fmt.Errorf("failed to parse response as JSON: %w", err)
		}
	}

	confidence := resp.Confidence
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	return &Verdict{
		Category:   ParseCategory(strings.ToLower(strings.TrimSpace(resp.Category))),
		Confidence: confidence,
		Reason:     resp.Reason,
	}, nil
}
