package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedBackend replays a fixed sequence of responses and records every call
type scriptedBackend struct {
	responses []scriptedResponse
	calls     []scriptedCall
}

type scriptedResponse struct {
	text string
	err  error
}

type scriptedCall struct {
	system   string
	wantJSON bool
}

func (b *scriptedBackend) Send(ctx context.Context, system, user string, wantJSON bool) (string, error) {
	b.calls = append(b.calls, scriptedCall{system: system, wantJSON: wantJSON})
	if len(b.responses) == 0 {
		return "", errors.New("no scripted response left")
	}
	resp := b.responses[0]
	b.responses = b.responses[1:]
	return resp.text, resp.err
}

func testPrompt() *Prompt {
	return &Prompt{ID: 1, Name: "test", Content: "Categorize this email."}
}

func newTestClassifier(backend LLMBackend) *Classifier {
	return NewClassifier(backend, zap.NewNop(), 3, time.Millisecond)
}

func TestClassifyParsesWellFormedResponse(t *testing.T) {
	backend := &scriptedBackend{responses: []scriptedResponse{
		{text: `{"category": "ecommerce", "reason": "order confirmation", "confidence": 0.94}`},
	}}

	verdict, err := newTestClassifier(backend).Classify(context.Background(),
		"shop@example.com", "Your order shipped", "Order #1234 is on its way", testPrompt())

	require.NoError(t, err)
	assert.Equal(t, CategoryEcommerce, verdict.Category)
	assert.Equal(t, 0.94, verdict.Confidence)
	assert.Equal(t, "order confirmation", verdict.Reason)

	require.Len(t, backend.calls, 1)
	assert.True(t, backend.calls[0].wantJSON)
}

func TestClassifyRetriesTransportFailures(t *testing.T) {
	backend := &scriptedBackend{responses: []scriptedResponse{
		{err: errors.New("connection refused")},
		{err: errors.New("connection refused")},
		{text: `{"category": "political", "reason": "campaign mail", "confidence": 0.8}`},
	}}

	verdict, err := newTestClassifier(backend).Classify(context.Background(),
		"pac@example.org", "Donate today", "body", testPrompt())

	require.NoError(t, err)
	assert.Equal(t, CategoryPolitical, verdict.Category)
	assert.Len(t, backend.calls, 3)
}

func TestClassifyFailsAfterAttemptsExhausted(t *testing.T) {
	transportErr := errors.New("connection refused")
	backend := &scriptedBackend{responses: []scriptedResponse{
		{err: transportErr}, {err: transportErr}, {err: transportErr},
	}}

	_, err := newTestClassifier(backend).Classify(context.Background(),
		"a@b.c", "subject", "body", testPrompt())

	var classErr *ClassificationError
	require.ErrorAs(t, err, &classErr)
	assert.ErrorIs(t, err, transportErr)
	assert.Len(t, backend.calls, 3, "exactly maxAttempts transport attempts")
}

func TestClassifyRelaxedRetryOnUnparsableResponse(t *testing.T) {
	backend := &scriptedBackend{responses: []scriptedResponse{
		{text: "I cannot produce JSON, sorry."},
		{text: `Sure! Here it is: {"category": "ecommerce", "reason": "receipt", "confidence": 0.7} Hope that helps.`},
	}}

	verdict, err := newTestClassifier(backend).Classify(context.Background(),
		"shop@example.com", "Receipt", "body", testPrompt())

	require.NoError(t, err)
	assert.Equal(t, CategoryEcommerce, verdict.Category)

	require.Len(t, backend.calls, 2)
	assert.True(t, backend.calls[0].wantJSON)
	assert.False(t, backend.calls[1].wantJSON, "relaxed retry drops structured output")
	assert.Contains(t, backend.calls[1].system, "ONLY a valid JSON object")
}

func TestClassifyFailsWhenRelaxedRetryStillUnparsable(t *testing.T) {
	backend := &scriptedBackend{responses: []scriptedResponse{
		{text: "not json"},
		{text: "still not json"},
	}}

	_, err := newTestClassifier(backend).Classify(context.Background(),
		"a@b.c", "subject", "body", testPrompt())

	var classErr *ClassificationError
	require.ErrorAs(t, err, &classErr)
	assert.Len(t, backend.calls, 2, "exactly one relaxed retry, never more")
}

func TestParseVerdictExtractsEmbeddedObject(t *testing.T) {
	verdict, err := parseVerdict(`The answer is {"category": "none", "reason": "personal mail", "confidence": 0.6}.`)
	require.NoError(t, err)
	assert.Equal(t, CategoryNone, verdict.Category)
	assert.Equal(t, 0.6, verdict.Confidence)
}

func TestParseVerdictNormalizesFields(t *testing.T) {
	verdict, err := parseVerdict(`{"category": " Ecommerce ", "reason": "x", "confidence": 3.5}`)
	require.NoError(t, err)
	assert.Equal(t, CategoryEcommerce, verdict.Category)
	assert.Equal(t, 1.0, verdict.Confidence, "confidence clamped to [0,1]")

	verdict, err = parseVerdict(`{"category": "newsletter", "confidence": -2}`)
	require.NoError(t, err)
	assert.Equal(t, CategoryNone, verdict.Category, "unknown category maps to none")
	assert.Equal(t, 0.0, verdict.Confidence)
}

func TestParseCategoryUnknownMapsToNone(t *testing.T) {
	assert.Equal(t, CategoryEcommerce, ParseCategory("ecommerce"))
	assert.Equal(t, CategoryPolitical, ParseCategory("political"))
	assert.Equal(t, CategoryNone, ParseCategory("none"))
	assert.Equal(t, CategoryNone, ParseCategory("promotions"))
	assert.Equal(t, CategoryNone, ParseCategory(""))
}
