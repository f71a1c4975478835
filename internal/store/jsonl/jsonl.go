// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package jsonl implements store.MetricsStore as two newline-delimited JSON
// files, requests.jsonl and feedback.jsonl.
package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/warden-dev/warden/internal/store"
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

const (
	RequestsFile = "requests.jsonl"
	FeedbackFile = "feedback.jsonl"

	maxLineBytes = 1 << 20
)

func init() {
	store.RegisterBackend("jsonl", func(dir string) (store.MetricsStore, error) {
		return New(dir)
	})
}

// Compile-time interface check.
var _ store.MetricsStore = (*Store)(nil)

// Store appends records through O_APPEND handles. A mutex per file keeps
// concurrent appends whole.
type Store struct {
	dir string

	reqMu    sync.Mutex
	requests *os.File

	fbMu     sync.Mutex
	feedback *os.File
}

// New creates dir if needed and opens both logs for appending.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, wardenerr.Errorf(wardenerr.CodeStoreDatabaseFailure, "creating metrics dir: %w", err)
	}

	requests, err := openAppend(filepath.Join(dir, RequestsFile))
	if err != nil {
		return nil, err
	}
	feedback, err := openAppend(filepath.Join(dir, FeedbackFile))
	if err != nil {
		_ = requests.Close()
		return nil, err
	}

	return &Store{dir: dir, requests: requests, feedback: feedback}, nil
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, wardenerr.Errorf(wardenerr.CodeStoreDatabaseFailure, "opening %s: %w", filepath.Base(path), err)
	}
	return f, nil
}

func (s *Store) AppendOutcome(_ context.Context, o *store.Outcome) error {
	if err := o.Validate(); err != nil {
		return err
	}
	rec := *o
	rec.Timestamp = rec.Timestamp.UTC()
	return appendLine(&s.reqMu, s.requests, rec)
}

func (s *Store) AppendFeedback(_ context.Context, f *store.Feedback) error {
	if err := f.Validate(); err != nil {
		return err
	}
	rec := *f
	rec.Timestamp = rec.Timestamp.UTC()
	return appendLine(&s.fbMu, s.feedback, rec)
}

// appendLine writes v as one line with a single Write call.
func appendLine(mu *sync.Mutex, f *os.File, v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return wardenerr.Errorf(wardenerr.CodeStoreInvalidInput, "encoding record: %w", err)
	}
	line = append(line, '\n')

	mu.Lock()
	defer mu.Unlock()
	if _, err := f.Write(line); err != nil {
		return wardenerr.Errorf(wardenerr.CodeStoreDatabaseFailure, "appending to %s: %w", filepath.Base(f.Name()), err)
	}
	return nil
}

func (s *Store) OutcomesSince(ctx context.Context, since time.Time) ([]*store.Outcome, error) {
	var out []*store.Outcome
	err := scan(ctx, filepath.Join(s.dir, RequestsFile), func(line []byte) error {
		var o store.Outcome
		if err := json.Unmarshal(line, &o); err != nil {
			return err
		}
		if !o.Timestamp.Before(since) {
			out = append(out, &o)
		}
		return nil
	})
	return out, err
}

func (s *Store) FeedbackSince(ctx context.Context, since time.Time) ([]*store.Feedback, error) {
	var out []*store.Feedback
	err := scan(ctx, filepath.Join(s.dir, FeedbackFile), func(line []byte) error {
		var f store.Feedback
		if err := json.Unmarshal(line, &f); err != nil {
			return err
		}
		if !f.Timestamp.Before(since) {
			out = append(out, &f)
		}
		return nil
	})
	return out, err
}

// scan calls fn for every non-empty line of path. A missing file reads as
// empty. Lines fn rejects are logged and skipped, which also covers a
// trailing line still being written.
func scan(ctx context.Context, path string, fn func([]byte) error) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return wardenerr.Errorf(wardenerr.CodeStoreDatabaseFailure, "opening %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			slog.Warn("skipping malformed metrics record",
				"file", filepath.Base(path), "line", lineNo, "error", err)
		}
	}
	if err := sc.Err(); err != nil {
		return wardenerr.Errorf(wardenerr.CodeStoreDatabaseFailure, "reading %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *Store) Close() error {
	s.reqMu.Lock()
	s.fbMu.Lock()
	defer s.reqMu.Unlock()
	defer s.fbMu.Unlock()
	return errors.Join(s.requests.Close(), s.feedback.Close())
}
