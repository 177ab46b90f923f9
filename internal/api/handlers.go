package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mikey/mailtagger/internal/core"
	"github.com/mikey/mailtagger/internal/utils"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps carries everything the management handlers need. The API shares the
// daemon's classifier and mailbox so test runs see exactly what the
// processing loop would see.
type Deps struct {
	Prompts     core.PromptRepository
	Mailbox     core.Mailbox
	Classifier  *core.Classifier
	TextProc    *utils.TextProcessor
	Logger      *zap.Logger
	Query       string
	MaxBodySize int
}

type updatePromptRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type testRequest struct {
	EmailCount    int64  `json:"email_count"`
	Query         string `json:"query"`
	PromptContent string `json:"prompt_content"`
}

type testResponse struct {
	Prompt  string             `json:"prompt"`
	Draft   bool               `json:"draft"`
	Total   int                `json:"total"`
	Counts  map[string]int     `json:"counts"`
	Results []*core.TestResult `json:"results"`
}

// NewHandler builds the management API router
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/api/prompt", handleGetPrompt(deps))
	r.Put("/api/prompt", handleUpdatePrompt(deps))
	r.Post("/api/test", handleTest(deps))
	r.Get("/api/test-results", handleTestResults(deps))
	r.Get("/api/stats", handleStats(deps))

	return r
}

func handleGetPrompt(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prompt, err := deps.Prompts.GetActivePrompt(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get prompt: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(prompt)
	}
}

func handleUpdatePrompt(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req updatePromptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		if strings.TrimSpace(req.Content) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "content is required")
			return
		}
		if req.Name == "" {
			req.Name = fmt.Sprintf("Prompt %s", time.Now().Format("2006-01-02 15:04"))
		}

		prompt, err := deps.Prompts.SetActivePrompt(r.Context(), req.Name, req.Content)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to update prompt: %v", err)
			return
		}

		deps.Logger.Info("Prompt updated",
			zap.Int64("prompt_id", prompt.ID),
			zap.String("name", prompt.Name))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(prompt)
	}
}

// handleTest classifies a small batch of recent messages without touching
// any labels. With prompt_content set, the batch runs against that draft
// text instead of the stored prompt and nothing is persisted, so a new
// prompt can be evaluated side by side with the active one.
func handleTest(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req testRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		if req.EmailCount <= 0 {
			req.EmailCount = 10
		}
		if req.EmailCount > 50 {
			req.EmailCount = 50
		}
		if req.Query == "" {
			req.Query = deps.Query
		}

		draft := req.PromptContent != ""
		var prompt *core.Prompt
		if draft {
			prompt = &core.Prompt{Name: "draft", Content: req.PromptContent}
		} else {
			var err error
			prompt, err = deps.Prompts.GetActivePrompt(r.Context())
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to get prompt: %v", err)
				return
			}
		}

		messages, err := deps.Mailbox.ListCandidates(r.Context(), req.Query, req.EmailCount)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "failed to list messages: %v", err)
			return
		}

		resp := testResponse{
			Prompt:  prompt.Name,
			Draft:   draft,
			Counts:  map[string]int{},
			Results: []*core.TestResult{},
		}
		for _, msg := range messages {
			body := deps.TextProc.ProcessText(core.ExtractText(msg.Body), deps.MaxBodySize)

			start := time.Now()
			verdict, err := deps.Classifier.Classify(r.Context(), msg.From, msg.Subject, body, prompt)
			if err != nil {
				deps.Logger.Warn("Test classification failed",
					zap.String("message_id", msg.ID),
					zap.Error(err))
				continue
			}

			result := &core.TestResult{
				PromptID:       prompt.ID,
				From:           msg.From,
				Subject:        msg.Subject,
				Category:       verdict.Category,
				Confidence:     verdict.Confidence,
				Reason:         verdict.Reason,
				ProcessingTime: time.Since(start),
				TestDate:       time.Now(),
			}
			if !draft {
				if err := deps.Prompts.SaveTestResult(r.Context(), result); err != nil {
					deps.Logger.Warn("Failed to save test result",
						zap.String("message_id", msg.ID),
						zap.Error(err))
				}
			}

			resp.Total++
			resp.Counts[string(verdict.Category)]++
			resp.Results = append(resp.Results, result)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func handleTestResults(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 200)

		results, err := deps.Prompts.RecentTestResults(r.Context(), limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list test results: %v", err)
			return
		}
		if results == nil {
			results = []*core.TestResult{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(results)
	}
}

func handleStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := parseIntParam(r, "days", 7, 365)

		stats, err := deps.Prompts.Statistics(r.Context(), days)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to compute statistics: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
