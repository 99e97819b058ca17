package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/docmirror/internal/model"
)

// createTestSummary creates a summary with sample data for testing.
func createTestSummary() *model.Summary {
	s := model.NewSummary("sitemap", "https://docs.example.com", "markdown_docs")
	s.StartedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.FinishedAt = s.StartedAt.Add(12 * time.Second)
	s.Discovered = 4
	s.Attempted = 4

	s.AddRecord(model.PageRecord{URL: "https://docs.example.com", Status: model.RecordConverted, StatusCode: 200, OutputPath: "index.md", Title: "Home"})
	s.AddRecord(model.PageRecord{URL: "https://docs.example.com/guide", Status: model.RecordConverted, StatusCode: 200, OutputPath: "guide.md", Title: "入門ガイド"})
	s.Converted = 2
	s.AddRecord(model.PageRecord{URL: "https://docs.example.com/missing", Status: model.StatusHTTPError.String(), StatusCode: 404, Error: "unexpected status | 404"})
	s.Fail(model.FailureHTTP)
	s.AddRecord(model.PageRecord{URL: "https://docs.example.com/private", Status: model.StatusRobotsDenied.String()})
	s.Skip(model.SkipRobotsDenied)
	return s
}

func TestNewWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		want   string
	}{
		{format: "", want: "*report.TextWriter"},
		{format: FormatText, want: "*report.TextWriter"},
		{format: FormatMarkdown, want: "*report.MarkdownWriter"},
		{format: FormatJSON, want: "*report.JSONWriter"},
	}
	for _, tt := range tests {
		t.Run(tt.want+"/"+tt.format, func(t *testing.T) {
			t.Parallel()
			w, err := NewWriter(tt.format, &bytes.Buffer{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := typeName(w); got != tt.want {
				t.Errorf("NewWriter(%q) = %s, want %s", tt.format, got, tt.want)
			}
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()
		if _, err := NewWriter("html", &bytes.Buffer{}); !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("expected ErrUnknownFormat, got %v", err)
		}
	})
}

func typeName(w Writer) string {
	switch w.(type) {
	case *TextWriter:
		return "*report.TextWriter"
	case *MarkdownWriter:
		return "*report.MarkdownWriter"
	case *JSONWriter:
		return "*report.JSONWriter"
	default:
		return "unknown"
	}
}

// TestTextWriter tests the human-readable report writer.
func TestTextWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and counts", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewTextWriter(&buf).Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("returned %d bytes, buffer has %d", n, buf.Len())
		}

		output := buf.String()
		for _, want := range []string{
			"DOCMIRROR CRAWL REPORT",
			"https://docs.example.com",
			"Completed with failures",
			"Converted:",
			"failed/http",
			"skipped/robots_denied",
			"HTTP STATUS CODES",
			"FAILURES",
			"https://docs.example.com/missing",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "ALL PAGES") {
			t.Error("page list should only appear in verbose mode")
		}
	})

	t.Run("aligns values", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewTextWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		col := -1
		for _, line := range strings.Split(buf.String(), "\n") {
			for _, key := range []string{"  Discovered:", "  Raw HTML fallback:"} {
				if !strings.HasPrefix(line, key) {
					continue
				}
				idx := len(line) - len(strings.TrimLeft(line[len(key):], " "))
				if col == -1 {
					col = idx
				} else if idx != col {
					t.Errorf("values not aligned: column %d vs %d", idx, col)
				}
			}
		}
		if col == -1 {
			t.Fatal("count lines not found")
		}
	})

	t.Run("verbose lists every page with wide titles", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewTextWriter(&buf, WithVerbose(true)).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "ALL PAGES") || !strings.Contains(output, "入門ガイド") {
			t.Error("expected every page record in verbose mode")
		}
	})

	t.Run("truncates pending list", func(t *testing.T) {
		t.Parallel()

		s := createTestSummary()
		for i := range 15 {
			s.Pending = append(s.Pending, "https://docs.example.com/p"+string(rune('a'+i)))
		}

		var buf bytes.Buffer
		if _, err := NewTextWriter(&buf).Write(s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "... and 5 more") {
			t.Errorf("expected truncated pending list, got:\n%s", buf.String())
		}
	})

	t.Run("cancelled status", func(t *testing.T) {
		t.Parallel()

		s := createTestSummary()
		s.Cancelled = true

		var buf bytes.Buffer
		if _, err := NewTextWriter(&buf).Write(s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Cancelled (partial results)") {
			t.Error("expected cancelled status")
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables chart and alert", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# docmirror Crawl Report",
			"## Pages",
			"```mermaid",
			"pie",
			"## Failures",
			"> [!IMPORTANT]",
			"unexpected status",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("tip when everything converted", func(t *testing.T) {
		t.Parallel()

		s := model.NewSummary("recursive", "https://docs.example.com", "out")
		s.Attempted = 1
		s.Converted = 1
		s.AddRecord(model.PageRecord{URL: "https://docs.example.com", Status: model.RecordConverted, StatusCode: 200})

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "> [!TIP]") {
			t.Error("expected tip alert")
		}
		if strings.Contains(buf.String(), "## Failures") {
			t.Error("failures section should be omitted")
		}
	})

	t.Run("warning when cancelled", func(t *testing.T) {
		t.Parallel()

		s := createTestSummary()
		s.Cancelled = true
		s.Pending = []string{"https://docs.example.com/later"}

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "> [!WARNING]") {
			t.Error("expected warning alert")
		}
		if !strings.Contains(output, "## Pending") || !strings.Contains(output, "https://docs.example.com/later") {
			t.Error("expected pending section")
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes summary with totals", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got struct {
			Method       string         `json:"method"`
			BaseURL      string         `json:"base_url"`
			Converted    int            `json:"converted"`
			FailedTotal  int            `json:"failed_total"`
			SkippedTotal int            `json:"skipped_total"`
			DurationMS   int64          `json:"duration_ms"`
			Failed       map[string]int `json:"failed"`
			Records      []struct {
				URL string `json:"url"`
			} `json:"records"`
		}
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Method != "sitemap" || got.BaseURL != "https://docs.example.com" {
			t.Errorf("unexpected header fields: %+v", got)
		}
		if got.Converted != 2 || got.FailedTotal != 1 || got.SkippedTotal != 1 {
			t.Errorf("unexpected counts: %+v", got)
		}
		if got.DurationMS != 12000 {
			t.Errorf("expected 12000ms, got %d", got.DurationMS)
		}
		if got.Failed["http"] != 1 {
			t.Errorf("expected failed.http=1, got %v", got.Failed)
		}
		if len(got.Records) != 4 {
			t.Errorf("expected 4 records, got %d", len(got.Records))
		}
	})

	t.Run("compact by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("compact output should be a single line")
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"method\"") {
			t.Error("expected indented output")
		}
	})
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var text, js bytes.Buffer
	mw := NewMultiWriter(NewTextWriter(&text), NewJSONWriter(&js))

	n, err := mw.Write(createTestSummary())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != text.Len()+js.Len() {
		t.Errorf("expected %d bytes, got %d", text.Len()+js.Len(), n)
	}
	if text.Len() == 0 || js.Len() == 0 {
		t.Error("expected both writers to receive output")
	}
}
