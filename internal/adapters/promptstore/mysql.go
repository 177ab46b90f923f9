package promptstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mikey/mailtagger/internal/core"
	"go.uber.org/zap"
)

const mysqlTimeFormat = "2006-01-02 15:04:05"

// MySQLStore is a MySQL implementation of the PromptRepository interface
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore creates a new MySQL prompt store
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS prompts (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			content TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS test_results (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			prompt_id BIGINT,
			test_date DATETIME NOT NULL,
			email_subject TEXT,
			email_from VARCHAR(255),
			predicted_category VARCHAR(50),
			confidence DOUBLE,
			reason TEXT,
			processing_time DOUBLE,
			INDEX idx_test_date (test_date)
		)`,
		`CREATE TABLE IF NOT EXISTS classification_logs (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			prompt_id BIGINT,
			timestamp DATETIME NOT NULL,
			category VARCHAR(50),
			confidence DOUBLE,
			processing_time DOUBLE,
			INDEX idx_logs_timestamp (timestamp)
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &MySQLStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

// GetActivePrompt returns the single active prompt, installing and
// activating the built-in default when the table is empty
func (s *MySQLStore) GetActivePrompt(ctx context.Context) (*core.Prompt, error) {
	prompt, err := s.queryActive(ctx)
	if err == nil {
		return prompt, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query active prompt: %w", err)
	}

	s.logger.Info("No active prompt found, installing default",
		zap.String("name", DefaultPromptName))
	return s.SetActivePrompt(ctx, DefaultPromptName, DefaultPromptContent)
}

// SetActivePrompt upserts a prompt by name and atomically makes it the only
// active one
func (s *MySQLStore) SetActivePrompt(ctx context.Context, name, content string) (*core.Prompt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE prompts SET is_active = FALSE`); err != nil {
		return nil, fmt.Errorf("failed to deactivate prompts: %w", err)
	}

	now := time.Now().UTC().Format(mysqlTimeFormat)
	var promptID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM prompts WHERE name = ?`, name).Scan(&promptID)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.ExecContext(ctx, `
			INSERT INTO prompts (name, content, is_active, created_at, updated_at)
			VALUES (?, ?, TRUE, ?, ?)
		`, name, content, now, now)
		if err != nil {
			return nil, fmt.Errorf("failed to insert prompt: %w", err)
		}
		if promptID, err = res.LastInsertId(); err != nil {
			return nil, fmt.Errorf("failed to get prompt id: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to look up prompt by name: %w", err)
	default:
		if _, err := tx.ExecContext(ctx, `
			UPDATE prompts SET content = ?, is_active = TRUE, updated_at = ? WHERE id = ?
		`, content, now, promptID); err != nil {
			return nil, fmt.Errorf("failed to update prompt: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit prompt update: %w", err)
	}

	return s.promptByID(ctx, promptID)
}

// LogClassification appends a production classification record
func (s *MySQLStore) LogClassification(ctx context.Context, rec *core.ClassificationRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO classification_logs (prompt_id, timestamp, category, confidence, processing_time)
		VALUES (?, ?, ?, ?, ?)
	`, rec.PromptID, rec.Timestamp.UTC().Format(mysqlTimeFormat), string(rec.Category), rec.Confidence, rec.ProcessingTime.Seconds())
	if err != nil {
		return fmt.Errorf("failed to insert classification log: %w", err)
	}
	return nil
}

// SaveTestResult appends a result from an ad-hoc prompt test run
func (s *MySQLStore) SaveTestResult(ctx context.Context, res *core.TestResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO test_results (prompt_id, test_date, email_subject, email_from, predicted_category, confidence, reason, processing_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, res.PromptID, res.TestDate.UTC().Format(mysqlTimeFormat), res.Subject, res.From,
		string(res.Category), res.Confidence, res.Reason, res.ProcessingTime.Seconds())
	if err != nil {
		return fmt.Errorf("failed to insert test result: %w", err)
	}
	return nil
}

// RecentTestResults returns the most recent test results, newest first
func (s *MySQLStore) RecentTestResults(ctx context.Context, limit int) ([]*core.TestResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT prompt_id, test_date, email_subject, email_from, predicted_category, confidence, reason, processing_time
		FROM test_results ORDER BY test_date DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query test results: %w", err)
	}
	defer rows.Close()

	var results []*core.TestResult
	for rows.Next() {
		var res core.TestResult
		var testDate, category string
		var seconds float64
		if err := rows.Scan(&res.PromptID, &testDate, &res.Subject, &res.From,
			&category, &res.Confidence, &res.Reason, &seconds); err != nil {
			return nil, fmt.Errorf("failed to scan test result: %w", err)
		}
		res.Category = core.Category(category)
		res.ProcessingTime = time.Duration(seconds * float64(time.Second))
		if res.TestDate, err = time.Parse(mysqlTimeFormat, testDate); err != nil {
			return nil, fmt.Errorf("failed to parse test_date: %w", err)
		}
		results = append(results, &res)
	}
	return results, rows.Err()
}

// Statistics aggregates classification logs for the active prompt over the
// last N days
func (s *MySQLStore) Statistics(ctx context.Context, days int) (*core.Statistics, error) {
	active, err := s.GetActivePrompt(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(mysqlTimeFormat)
	stats := &core.Statistics{
		PromptID:   active.ID,
		PromptName: active.Name,
		Days:       days,
		Categories: make(map[core.Category]core.CategoryStats),
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*), AVG(confidence)
		FROM classification_logs
		WHERE prompt_id = ? AND timestamp >= ?
		GROUP BY category
	`, active.ID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query category stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var count int
		var avgConf sql.NullFloat64
		if err := rows.Scan(&category, &count, &avgConf); err != nil {
			return nil, fmt.Errorf("failed to scan category stats: %w", err)
		}
		stats.Categories[core.Category(category)] = core.CategoryStats{
			Count:         count,
			AvgConfidence: avgConf.Float64,
		}
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var avgConf, avgTime sql.NullFloat64
	err = s.db.QueryRowContext(ctx, `
		SELECT AVG(confidence), AVG(processing_time)
		FROM classification_logs
		WHERE prompt_id = ? AND timestamp >= ?
	`, active.ID, cutoff).Scan(&avgConf, &avgTime)
	if err != nil {
		return nil, fmt.Errorf("failed to query overall stats: %w", err)
	}
	stats.AvgConfidence = avgConf.Float64
	stats.AvgProcessingTime = avgTime.Float64

	return stats, nil
}

// PruneLogs removes classification logs and test results older than the
// given age
func (s *MySQLStore) PruneLogs(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().UTC().Add(-olderThan).Format(mysqlTimeFormat)

	if _, err := s.db.ExecContext(ctx, `DELETE FROM classification_logs WHERE timestamp < ?`, cutoff); err != nil {
		return fmt.Errorf("failed to prune classification logs: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM test_results WHERE test_date < ?`, cutoff); err != nil {
		return fmt.Errorf("failed to prune test results: %w", err)
	}
	return nil
}

func (s *MySQLStore) queryActive(ctx context.Context) (*core.Prompt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, content, is_active, created_at, updated_at
		FROM prompts WHERE is_active = TRUE LIMIT 1
	`)
	return s.scanPrompt(row)
}

func (s *MySQLStore) promptByID(ctx context.Context, id int64) (*core.Prompt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, content, is_active, created_at, updated_at
		FROM prompts WHERE id = ?
	`, id)
	return s.scanPrompt(row)
}

func (s *MySQLStore) scanPrompt(row *sql.Row) (*core.Prompt, error) {
	var p core.Prompt
	var createdAt, updatedAt string
	if err := row.Scan(&p.ID, &p.Name, &p.Content, &p.IsActive, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if p.CreatedAt, err = time.Parse(mysqlTimeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(mysqlTimeFormat, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return &p, nil
}
