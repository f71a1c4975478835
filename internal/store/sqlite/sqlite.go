// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package sqlite implements store.MetricsStore on a single SQLite file.
package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warden-dev/warden/internal/store"
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

// DBFile is the database file name inside the storage directory.
const DBFile = "metrics.db"

// timestampLayout is fixed width so TEXT comparison orders chronologically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func init() {
	store.RegisterBackend("sqlite", func(dir string) (store.MetricsStore, error) {
		return New(context.Background(), dir)
	})
}

var _ store.MetricsStore = (*Store)(nil)

// Store keeps outcomes and feedback in two tables. All access goes through a
// single connection, so appends are serialized by SQLite itself.
type Store struct {
	db *sqlx.DB
}

// New opens (or creates) dir/metrics.db and applies pending migrations.
func New(ctx context.Context, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, wardenerr.Wrap(err, wardenerr.CodeStoreDatabaseFailure, "creating storage directory")
	}

	dsn := filepath.Join(dir, DBFile) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, wardenerr.Wrap(err, wardenerr.CodeStoreDatabaseFailure, "opening metrics database")
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, wardenerr.Wrap(err, wardenerr.CodeStoreDatabaseFailure, "pinging metrics database")
	}
	if err := migrate(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

type outcomeRow struct {
	RequestID        string  `db:"request_id"`
	Timestamp        string  `db:"timestamp"`
	Model            string  `db:"model"`
	Temperature      float64 `db:"temperature"`
	PromptTokens     int     `db:"prompt_tokens"`
	CompletionTokens int     `db:"completion_tokens"`
	TotalTokens      int     `db:"total_tokens"`
	CostUSD          float64 `db:"cost_usd"`
	DurationSeconds  float64 `db:"duration_seconds"`
	Success          bool    `db:"success"`
	Attempts         int     `db:"attempts"`
	UserID           string  `db:"user_id"`
	SessionID        string  `db:"session_id"`
	ErrorType        string  `db:"error_type"`
	ErrorMessage     string  `db:"error_message"`
}

type feedbackRow struct {
	Timestamp    string `db:"timestamp"`
	RequestID    string `db:"request_id"`
	MessageIndex int    `db:"message_index"`
	Rating       string `db:"rating"`
	Comment      string `db:"comment"`
}

const (
	insertOutcomeSQL = `INSERT INTO outcomes (
		request_id, timestamp, model, temperature, prompt_tokens, completion_tokens,
		total_tokens, cost_usd, duration_seconds, success, attempts, user_id,
		session_id, error_type, error_message
	) VALUES (
		:request_id, :timestamp, :model, :temperature, :prompt_tokens, :completion_tokens,
		:total_tokens, :cost_usd, :duration_seconds, :success, :attempts, :user_id,
		:session_id, :error_type, :error_message
	)`

	selectOutcomesSQL = `SELECT request_id, timestamp, model, temperature, prompt_tokens,
		completion_tokens, total_tokens, cost_usd, duration_seconds, success, attempts,
		user_id, session_id, error_type, error_message
		FROM outcomes WHERE timestamp >= ? ORDER BY id`

	insertFeedbackSQL = `INSERT INTO feedback (timestamp, request_id, message_index, rating, comment)
		VALUES (:timestamp, :request_id, :message_index, :rating, :comment)`

	selectFeedbackSQL = `SELECT timestamp, request_id, message_index, rating, comment
		FROM feedback WHERE timestamp >= ? ORDER BY id`
)

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func (s *Store) AppendOutcome(ctx context.Context, o *store.Outcome) error {
	if err := o.Validate(); err != nil {
		return err
	}
	row := outcomeRow{
		RequestID:        o.RequestID,
		Timestamp:        formatTimestamp(o.Timestamp),
		Model:            o.Model,
		Temperature:      o.Temperature,
		PromptTokens:     o.PromptTokens,
		CompletionTokens: o.CompletionTokens,
		TotalTokens:      o.TotalTokens,
		CostUSD:          o.CostUSD,
		DurationSeconds:  o.DurationSeconds,
		Success:          o.Success,
		Attempts:         o.Attempts,
		UserID:           o.UserID,
		SessionID:        o.SessionID,
		ErrorType:        o.ErrorType,
		ErrorMessage:     o.ErrorMessage,
	}
	if _, err := s.db.NamedExecContext(ctx, insertOutcomeSQL, row); err != nil {
		return wardenerr.Wrap(err, wardenerr.CodeStoreDatabaseFailure, "inserting outcome",
			wardenerr.Field("request_id", o.RequestID))
	}
	return nil
}

func (s *Store) OutcomesSince(ctx context.Context, since time.Time) ([]*store.Outcome, error) {
	var rows []outcomeRow
	if err := s.db.SelectContext(ctx, &rows, selectOutcomesSQL, formatTimestamp(since)); err != nil {
		return nil, wardenerr.Wrap(err, wardenerr.CodeStoreDatabaseFailure, "querying outcomes")
	}

	out := make([]*store.Outcome, 0, len(rows))
	for _, r := range rows {
		ts, err := store.ParseTimestamp(r.Timestamp)
		if err != nil {
			return nil, err
		}
		out = append(out, &store.Outcome{
			RequestID:        r.RequestID,
			Timestamp:        ts,
			Model:            r.Model,
			Temperature:      r.Temperature,
			PromptTokens:     r.PromptTokens,
			CompletionTokens: r.CompletionTokens,
			TotalTokens:      r.TotalTokens,
			CostUSD:          r.CostUSD,
			DurationSeconds:  r.DurationSeconds,
			Success:          r.Success,
			Attempts:         r.Attempts,
			UserID:           r.UserID,
			SessionID:        r.SessionID,
			ErrorType:        r.ErrorType,
			ErrorMessage:     r.ErrorMessage,
		})
	}
	return out, nil
}

func (s *Store) AppendFeedback(ctx context.Context, f *store.Feedback) error {
	if err := f.Validate(); err != nil {
		return err
	}
	row := feedbackRow{
		Timestamp:    formatTimestamp(f.Timestamp),
		RequestID:    f.RequestID,
		MessageIndex: f.MessageIndex,
		Rating:       string(f.Rating),
		Comment:      f.Comment,
	}
	if _, err := s.db.NamedExecContext(ctx, insertFeedbackSQL, row); err != nil {
		return wardenerr.Wrap(err, wardenerr.CodeStoreDatabaseFailure, "inserting feedback")
	}
	return nil
}

func (s *Store) FeedbackSince(ctx context.Context, since time.Time) ([]*store.Feedback, error) {
	var rows []feedbackRow
	if err := s.db.SelectContext(ctx, &rows, selectFeedbackSQL, formatTimestamp(since)); err != nil {
		return nil, wardenerr.Wrap(err, wardenerr.CodeStoreDatabaseFailure, "querying feedback")
	}

	out := make([]*store.Feedback, 0, len(rows))
	for _, r := range rows {
		ts, err := store.ParseTimestamp(r.Timestamp)
		if err != nil {
			return nil, err
		}
		out = append(out, &store.Feedback{
			Timestamp:    ts,
			RequestID:    r.RequestID,
			MessageIndex: r.MessageIndex,
			Rating:       store.Rating(r.Rating),
			Comment:      r.Comment,
		})
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
