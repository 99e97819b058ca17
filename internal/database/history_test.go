package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/nao1215/docmirror/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *HistoryDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func record(url, status, hash string) model.PageRecord {
	r := model.PageRecord{
		URL:       url,
		Status:    status,
		Hash:      hash,
		FetchedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	if status == model.RecordConverted {
		r.StatusCode = 200
	}
	return r
}

func newSummary(records ...model.PageRecord) *model.Summary {
	s := model.NewSummary("sitemap", "https://docs.example.com", "markdown_docs")
	s.StartedAt = time.Date(2026, 3, 1, 9, 59, 0, 0, time.UTC)
	s.FinishedAt = s.StartedAt.Add(90 * time.Second)
	for _, r := range records {
		s.AddRecord(r)
		if r.Succeeded() {
			s.Converted++
		}
	}
	return s
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "nonexistent-db")

		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		db1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		id, err := db1.SaveRun(context.Background(), newSummary())
		if err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
		_ = db1.Close()

		db2, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db2.Close()

		runs, err := db2.ListRuns(context.Background(), 0)
		if err != nil {
			t.Fatalf("ListRuns: %v", err)
		}
		if len(runs) != 1 || runs[0].ID != id {
			t.Errorf("expected the saved run after reopening, got %+v", runs)
		}
	})
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.CreateIfNotExists {
		t.Error("CreateIfNotExists should default to true")
	}
	if !opts.EnableWAL {
		t.Error("EnableWAL should default to true")
	}
}

func TestSaveAndGetRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	failed := record("https://docs.example.com/missing", model.StatusHTTPError.String(), "")
	failed.StatusCode = 404
	failed.Error = "http status 404"

	s := newSummary(
		record("https://docs.example.com", model.RecordConverted, "aaa"),
		record("https://docs.example.com/guide", model.RecordConverted, "bbb"),
		failed,
	)
	s.Fail(model.FailureHTTP)
	s.Skip(model.SkipOutOfScope)
	s.Pending = []string{"https://docs.example.com/later"}
	s.Records[1].OutputPath = "guide.md"
	s.Records[1].Title = "Guide"

	id, err := db.SaveRun(ctx, s)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive run id, got %d", id)
	}

	got, err := db.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.BaseURL != s.BaseURL || got.Method != "sitemap" || got.Converted != 2 {
		t.Errorf("summary fields not restored: %+v", got)
	}
	if !got.StartedAt.Equal(s.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, s.StartedAt)
	}
	if got.Failed[model.FailureHTTP] != 1 || got.Skipped[model.SkipOutOfScope] != 1 {
		t.Errorf("tallies not restored: failed=%v skipped=%v", got.Failed, got.Skipped)
	}
	if got.HTTPCodes[404] != 1 {
		t.Errorf("expected one 404 in HTTPCodes, got %v", got.HTTPCodes)
	}
	if len(got.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got.Records))
	}
	r := got.Records[1]
	if r.OutputPath != "guide.md" || r.Title != "Guide" || r.Hash != "bbb" || r.StatusCode != 200 {
		t.Errorf("record not restored: %+v", r)
	}
	if !r.FetchedAt.Equal(s.Records[1].FetchedAt) {
		t.Errorf("FetchedAt = %v, want %v", r.FetchedAt, s.Records[1].FetchedAt)
	}
	if got.Records[2].Error != "http status 404" {
		t.Errorf("error message not restored: %q", got.Records[2].Error)
	}
}

func TestSaveRun_DuplicateURLKeepsLast(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	s := newSummary(
		record("https://docs.example.com/a", model.StatusNetworkError.String(), ""),
		record("https://docs.example.com/a", model.RecordConverted, "abc"),
	)
	id, err := db.SaveRun(ctx, s)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	pages, err := db.ListPages(ctx, id)
	if err != nil {
		t.Fatalf("ListPages: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if pages[0].Status != model.RecordConverted {
		t.Errorf("expected last record to win, got %q", pages[0].Status)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	if _, err := db.GetRun(context.Background(), 42); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	var ids []int64
	for range 3 {
		s := newSummary(record("https://docs.example.com", model.RecordConverted, "x"))
		s.Pending = []string{"https://docs.example.com/a", "https://docs.example.com/b"}
		id, err := db.SaveRun(ctx, s)
		if err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
		ids = append(ids, id)
	}

	t.Run("newest first", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(ctx, 0)
		if err != nil {
			t.Fatalf("ListRuns: %v", err)
		}
		if len(runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(runs))
		}
		got := []int64{runs[0].ID, runs[1].ID, runs[2].ID}
		want := []int64{ids[2], ids[1], ids[0]}
		if !slices.Equal(got, want) {
			t.Errorf("expected order %v, got %v", want, got)
		}
		if runs[0].Converted != 1 || runs[0].Pending != 2 {
			t.Errorf("unexpected counters: %+v", runs[0])
		}
		if runs[0].Duration() != 90*time.Second {
			t.Errorf("expected 90s duration, got %v", runs[0].Duration())
		}
	})

	t.Run("limit", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(ctx, 2)
		if err != nil {
			t.Fatalf("ListRuns: %v", err)
		}
		if len(runs) != 2 {
			t.Errorf("expected 2 runs, got %d", len(runs))
		}
	})
}

func TestDiffRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	first, err := db.SaveRun(ctx, newSummary(
		record("https://docs.example.com", model.RecordConverted, "h1"),
		record("https://docs.example.com/old", model.RecordConverted, "h2"),
		record("https://docs.example.com/flaky", model.StatusNetworkError.String(), ""),
		record("https://docs.example.com/edited", model.RecordConverted, "h3"),
	))
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	second, err := db.SaveRun(ctx, newSummary(
		record("https://docs.example.com", model.RecordConverted, "h1"),
		record("https://docs.example.com/flaky", model.RecordConverted, "h4"),
		record("https://docs.example.com/edited", model.RecordConverted, "h5"),
		record("https://docs.example.com/new", model.RecordConverted, "h6"),
	))
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	diff, err := db.DiffRuns(ctx, first, second)
	if err != nil {
		t.Fatalf("DiffRuns: %v", err)
	}

	if want := []string{"https://docs.example.com/new"}; !slices.Equal(diff.Added, want) {
		t.Errorf("Added = %v, want %v", diff.Added, want)
	}
	if want := []string{"https://docs.example.com/old"}; !slices.Equal(diff.Removed, want) {
		t.Errorf("Removed = %v, want %v", diff.Removed, want)
	}
	if len(diff.Changed) != 2 {
		t.Fatalf("expected 2 changed pages, got %+v", diff.Changed)
	}

	edited, flaky := diff.Changed[0], diff.Changed[1]
	if edited.URL != "https://docs.example.com/edited" || !edited.ContentChanged {
		t.Errorf("expected content change for edited page, got %+v", edited)
	}
	if flaky.URL != "https://docs.example.com/flaky" || flaky.FromStatus != "network_error" || flaky.ToStatus != model.RecordConverted {
		t.Errorf("expected status change for flaky page, got %+v", flaky)
	}
	if flaky.ContentChanged {
		t.Error("a page without a previous hash has no content change")
	}
	if diff.Empty() {
		t.Error("diff should not be empty")
	}

	same, err := db.DiffRuns(ctx, second, second)
	if err != nil {
		t.Fatalf("DiffRuns: %v", err)
	}
	if !same.Empty() {
		t.Errorf("a run diffed with itself should be empty, got %+v", same)
	}

	if _, err := db.DiffRuns(ctx, first, 999); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{name: "rfc3339 nano", in: "2026-03-01T10:00:00.5Z", want: time.Date(2026, 3, 1, 10, 0, 0, 500000000, time.UTC)},
		{name: "sqlite default", in: "2026-03-01 10:00:00", want: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		{name: "empty", in: "", want: time.Time{}},
		{name: "garbage", in: "yesterday", want: time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := parseTimestamp(tt.in); !got.Equal(tt.want) {
				t.Errorf("parseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
