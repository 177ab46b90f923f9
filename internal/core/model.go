package core

import (
	"time"
)

// Category is the classification bucket assigned to a message
type Category string

const (
	CategoryEcommerce Category = "ecommerce"
	CategoryPolitical Category = "political"
	CategoryNone      Category = "none"
)

// ParseCategory maps a raw category string to a known Category.
// Unrecognized values map to CategoryNone rather than failing.
func ParseCategory(s string) Category {
	switch Category(s) {
	case CategoryEcommerce, CategoryPolitical, CategoryNone:
		return Category(s)
	default:
		return CategoryNone
	}
}

// BodyPart is one node of a message's MIME part tree
type BodyPart struct {
	MIMEType string
	Data     string
	Parts    []*BodyPart
}

// Email represents a candidate message fetched from the mailbox.
// It lives for one processing cycle and is never persisted.
type Email struct {
	ID      string
	From    string
	Subject string
	Body    *BodyPart
}

// Verdict is the parsed classification result for one message
type Verdict struct {
	Category   Category
	Confidence float64
	Reason     string
}

// Prompt is a stored classification prompt. At most one prompt is
// active at any time; the active one is what the daemon classifies with.
type Prompt struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClassificationRecord is an append-only log row written for each
// production classification, used only for aggregate statistics.
type ClassificationRecord struct {
	PromptID       int64
	Category       Category
	Confidence     float64
	ProcessingTime time.Duration
	Timestamp      time.Time
}

// TestResult is one row of an ad-hoc prompt test run
type TestResult struct {
	PromptID       int64         `json:"prompt_id"`
	Subject        string        `json:"subject"`
	From           string        `json:"from"`
	Category       Category      `json:"category"`
	Confidence     float64       `json:"confidence"`
	Reason         string        `json:"reason"`
	ProcessingTime time.Duration `json:"processing_time"`
	TestDate       time.Time     `json:"test_date"`
}

// CategoryStats aggregates classification outcomes for one category
type CategoryStats struct {
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// Statistics summarizes recent classification activity for the active prompt
type Statistics struct {
	PromptID          int64                      `json:"prompt_id"`
	PromptName        string                     `json:"prompt_name"`
	Days              int                        `json:"days"`
	Total             int                        `json:"total_classifications"`
	Categories        map[Category]CategoryStats `json:"categories"`
	AvgConfidence     float64                    `json:"avg_confidence"`
	AvgProcessingTime float64                    `json:"avg_processing_time"`
}

// CycleStats are the aggregate counts returned by one processing cycle
type CycleStats struct {
	Processed int
	Errors    int
}
