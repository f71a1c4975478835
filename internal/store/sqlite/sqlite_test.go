// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-dev/warden/internal/store"
	"github.com/warden-dev/warden/internal/store/sqlite"
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*sqlite.Store, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "metrics")
	s, err := sqlite.New(context.Background(), dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, dir
}

func newMockStore(t *testing.T) (*sqlite.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlite.NewWithDB(sqlx.NewDb(db, "sqlite3")), mock
}

func outcome(id string, at time.Time, success bool) *store.Outcome {
	o := &store.Outcome{
		RequestID:        id,
		Timestamp:        at,
		Model:            "openai/gpt-4o-mini",
		Temperature:      0.7,
		PromptTokens:     1000,
		CompletionTokens: 500,
		TotalTokens:      1500,
		CostUSD:          0.000375,
		DurationSeconds:  0.8,
		Success:          success,
		Attempts:         1,
	}
	if !success {
		o.ErrorType = "RateLimited"
		o.ErrorMessage = "Too many requests. Please wait a moment and try again."
	}
	return o
}

func TestStore_OutcomeRoundTrip(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	in := outcome("req-1", base, false)
	in.UserID = "alice"
	in.SessionID = "s-9"
	require.NoError(t, s.AppendOutcome(ctx, in))

	got, err := s.OutcomesSince(ctx, base.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, in, got[0])
}

func TestStore_WindowAndAppendOrder(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	// Appended out of chronological order on purpose.
	require.NoError(t, s.AppendOutcome(ctx, outcome("b", base.Add(30*time.Minute), true)))
	require.NoError(t, s.AppendOutcome(ctx, outcome("old", base.Add(-2*time.Hour), true)))
	require.NoError(t, s.AppendOutcome(ctx, outcome("a", base, true)))

	got, err := s.OutcomesSince(ctx, base)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].RequestID)
	assert.Equal(t, "a", got[1].RequestID)
}

func TestStore_SubsecondTimestampsCompareChronologically(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendOutcome(ctx, outcome("whole", base, true)))
	require.NoError(t, s.AppendOutcome(ctx, outcome("frac", base.Add(500*time.Millisecond), true)))

	got, err := s.OutcomesSince(ctx, base.Add(100*time.Millisecond))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "frac", got[0].RequestID)
}

func TestStore_FeedbackRoundTrip(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	fb := &store.Feedback{
		Timestamp:    base,
		RequestID:    "req-1",
		MessageIndex: 3,
		Rating:       store.RatingNegative,
		Comment:      "too verbose",
	}
	require.NoError(t, s.AppendFeedback(ctx, fb))

	got, err := s.FeedbackSince(ctx, base.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, fb, got[0])

	none, err := s.FeedbackSince(ctx, base.Add(time.Second))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_RejectsInvalidRecords(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	err := s.AppendOutcome(ctx, &store.Outcome{Timestamp: base})
	assert.True(t, wardenerr.HasCode(err, wardenerr.CodeStoreInvalidInput))

	err = s.AppendFeedback(ctx, &store.Feedback{Timestamp: base, Rating: "meh"})
	assert.True(t, wardenerr.HasCode(err, wardenerr.CodeStoreInvalidInput))
}

func TestStore_ReopenKeepsDataAndSchema(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "metrics")
	ctx := context.Background()

	s, err := sqlite.New(ctx, dir)
	require.NoError(t, err)
	require.NoError(t, s.AppendOutcome(ctx, outcome("kept", base, true)))
	require.NoError(t, s.Close())

	s, err = sqlite.New(ctx, dir)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	got, err := s.OutcomesSince(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0].RequestID)
}

func TestOpen_SQLiteBackendRegistered(t *testing.T) {
	assert.Contains(t, store.Backends(), "sqlite")

	s, err := store.Open(&store.StorageConfig{Backend: "sqlite", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}

func TestStore_InsertFailureIsDatabaseError(t *testing.T) {
	s, mock := newMockStore(t)
	cause := errors.New("database is locked")
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outcomes")).WillReturnError(cause)

	err := s.AppendOutcome(context.Background(), outcome("req-1", base, true))
	require.Error(t, err)
	assert.True(t, wardenerr.HasCode(err, wardenerr.CodeStoreDatabaseFailure))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "req-1", wardenerr.FieldsOf(err)["request_id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_QueryUsesFixedWidthCutoff(t *testing.T) {
	s, mock := newMockStore(t)
	cause := errors.New("disk I/O error")
	mock.ExpectQuery(regexp.QuoteMeta("FROM outcomes WHERE timestamp >= ?")).
		WithArgs("2026-03-01T11:00:00.000000000Z").
		WillReturnError(cause)

	_, err := s.OutcomesSince(context.Background(), base.Add(-time.Hour).In(time.FixedZone("EST", -5*3600)))
	require.Error(t, err)
	assert.True(t, wardenerr.HasCode(err, wardenerr.CodeStoreDatabaseFailure))
	assert.ErrorIs(t, err, cause)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CorruptTimestampFailsDecode(t *testing.T) {
	s, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"timestamp", "request_id", "message_index", "rating", "comment"}).
		AddRow("yesterday", "req-1", 0, "positive", "")
	mock.ExpectQuery(regexp.QuoteMeta("FROM feedback")).WillReturnRows(rows)

	_, err := s.FeedbackSince(context.Background(), base)
	require.Error(t, err)
	assert.True(t, wardenerr.HasCode(err, wardenerr.CodeStoreRecordDecodeFailure))
	assert.NoError(t, mock.ExpectationsWereMet())
}
