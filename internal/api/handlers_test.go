package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/mailtagger/internal/adapters/promptstore"
	"github.com/mikey/mailtagger/internal/core"
	"github.com/mikey/mailtagger/internal/utils"
)

type staticBackend struct {
	response string
}

func (b *staticBackend) Send(ctx context.Context, system, user string, wantJSON bool) (string, error) {
	return b.response, nil
}

type staticMailbox struct {
	messages []*core.Email
	labeled  int
	triaged  int
}

func (m *staticMailbox) ListCandidates(ctx context.Context, query string, limit int64) ([]*core.Email, error) {
	if limit > 0 && int64(len(m.messages)) > limit {
		return m.messages[:limit], nil
	}
	return m.messages, nil
}

func (m *staticMailbox) ApplyLabel(ctx context.Context, messageID string, category core.Category) error {
	m.labeled++
	return nil
}

func (m *staticMailbox) MarkTriaged(ctx context.Context, messageID string) error {
	m.triaged++
	return nil
}

func newTestDeps(t *testing.T, mailbox *staticMailbox) (Deps, *promptstore.MemoryStore) {
	t.Helper()
	logger := zap.NewNop()
	store := promptstore.NewMemoryStore(logger)
	backend := &staticBackend{response: `{"category": "ecommerce", "reason": "receipt", "confidence": 0.9}`}
	return Deps{
		Prompts:     store,
		Mailbox:     mailbox,
		Classifier:  core.NewClassifier(backend, logger, 1, 0),
		TextProc:    utils.NewTextProcessor(logger),
		Logger:      logger,
		Query:       "in:inbox",
		MaxBodySize: 4000,
	}, store
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestGetPromptInstallsDefault(t *testing.T) {
	deps, _ := newTestDeps(t, &staticMailbox{})
	handler := NewHandler(deps)

	rec := doRequest(t, handler, http.MethodGet, "/api/prompt", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var prompt core.Prompt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prompt))
	assert.Equal(t, promptstore.DefaultPromptName, prompt.Name)
	assert.True(t, prompt.IsActive)
}

func TestUpdatePrompt(t *testing.T) {
	deps, store := newTestDeps(t, &staticMailbox{})
	handler := NewHandler(deps)

	rec := doRequest(t, handler, http.MethodPut, "/api/prompt",
		`{"name": "tuned", "content": "New categorization rules."}`)
	require.Equal(t, http.StatusOK, rec.Code)

	active, err := store.GetActivePrompt(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tuned", active.Name)
	assert.Equal(t, "New categorization rules.", active.Content)
}

func TestUpdatePromptRejectsEmptyContent(t *testing.T) {
	deps, _ := newTestDeps(t, &staticMailbox{})
	handler := NewHandler(deps)

	rec := doRequest(t, handler, http.MethodPut, "/api/prompt", `{"name": "x", "content": "  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func testMessages(n int) []*core.Email {
	messages := make([]*core.Email, n)
	for i := range messages {
		messages[i] = &core.Email{
			ID:      "m" + string(rune('1'+i)),
			From:    "shop@example.com",
			Subject: "Your receipt",
			Body:    &core.BodyPart{MIMEType: "text/plain", Data: "thanks for your order"},
		}
	}
	return messages
}

func TestTestRunSavesResults(t *testing.T) {
	mailbox := &staticMailbox{messages: testMessages(3)}
	deps, store := newTestDeps(t, mailbox)
	handler := NewHandler(deps)

	rec := doRequest(t, handler, http.MethodPost, "/api/test", `{"email_count": 3}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp testResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Draft)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 3, resp.Counts["ecommerce"])

	saved, err := store.RecentTestResults(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, saved, 3)

	// Test runs never touch the mailbox state.
	assert.Zero(t, mailbox.labeled)
	assert.Zero(t, mailbox.triaged)
}

func TestTestRunWithDraftPromptPersistsNothing(t *testing.T) {
	mailbox := &staticMailbox{messages: testMessages(2)}
	deps, store := newTestDeps(t, mailbox)
	handler := NewHandler(deps)

	rec := doRequest(t, handler, http.MethodPost, "/api/test",
		`{"email_count": 2, "prompt_content": "Draft rules under evaluation."}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp testResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Draft)
	assert.Equal(t, 2, resp.Total)

	saved, err := store.RecentTestResults(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, saved, "draft runs are not persisted")

	// The draft run must not disturb the active prompt either.
	active, err := store.GetActivePrompt(context.Background())
	require.NoError(t, err)
	assert.Equal(t, promptstore.DefaultPromptName, active.Name)
}

func TestTestResultsLimit(t *testing.T) {
	deps, store := newTestDeps(t, &staticMailbox{})
	handler := NewHandler(deps)

	prompt, err := store.GetActivePrompt(context.Background())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.SaveTestResult(context.Background(), &core.TestResult{
			PromptID: prompt.ID,
			Subject:  "s",
			Category: core.CategoryNone,
			TestDate: time.Now(),
		}))
	}

	rec := doRequest(t, handler, http.MethodGet, "/api/test-results?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var results []*core.TestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	assert.Len(t, results, 2)
}

func TestStats(t *testing.T) {
	deps, store := newTestDeps(t, &staticMailbox{})
	handler := NewHandler(deps)

	prompt, err := store.GetActivePrompt(context.Background())
	require.NoError(t, err)
	require.NoError(t, store.LogClassification(context.Background(), &core.ClassificationRecord{
		PromptID:   prompt.ID,
		Category:   core.CategoryPolitical,
		Confidence: 0.8,
		Timestamp:  time.Now(),
	}))

	rec := doRequest(t, handler, http.MethodGet, "/api/stats?days=14", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats core.Statistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 14, stats.Days)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Categories[core.CategoryPolitical].Count)
}
