package converter

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/docmirror/internal/model"
)

// TestFrontmatter_RoundTrip tests that parsing a rendered document yields
// the title, source URL, date and body it was rendered from.
func TestFrontmatter_RoundTrip(t *testing.T) {
	t.Parallel()

	downloaded := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)

	titles := []string{
		"Install Guide",
		"API: Reference",
		"true",
		"123",
		"# Heading-like",
		`Quotes "double" and 'single'`,
		"- dash start",
		"日本語のタイトル",
		"",
	}

	for _, title := range titles {
		t.Run(title, func(t *testing.T) {
			t.Parallel()

			page := model.ConvertedPage{
				Title:        title,
				SourceURL:    "https://docs.example.com/guide/install?lang=en&v=2",
				DownloadedAt: downloaded,
				Body:         "# Install\n\nRun it.\n",
			}

			doc := RenderDocument(page)
			fm, body, err := ParseFrontmatter(doc)
			if err != nil {
				t.Fatalf("ParseFrontmatter: %v\n%s", err, doc)
			}
			if fm.Title != page.Title {
				t.Errorf("title: expected %q, got %q", page.Title, fm.Title)
			}
			if fm.SourceURL != page.SourceURL {
				t.Errorf("source_url: expected %q, got %q", page.SourceURL, fm.SourceURL)
			}
			if fm.DateDownloaded != "2024-01-02 03:04:05" {
				t.Errorf("date_downloaded: got %q", fm.DateDownloaded)
			}
			got, err := fm.Downloaded()
			if err != nil || !got.Equal(downloaded) {
				t.Errorf("Downloaded() = %v, %v", got, err)
			}
			if body != page.Body {
				t.Errorf("body: expected %q, got %q", page.Body, body)
			}
		})
	}
}

func TestRenderDocument_Layout(t *testing.T) {
	t.Parallel()

	page := model.ConvertedPage{
		Title:        "Guide",
		SourceURL:    "https://docs.example.com/guide",
		DownloadedAt: time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
		Body:         "Hello",
	}

	want := "---\n" +
		"title: Guide\n" +
		"source_url: https://docs.example.com/guide\n" +
		"date_downloaded: 2024-05-06 07:08:09\n" +
		"---\n" +
		"\n" +
		"Hello\n"
	if got := RenderDocument(page); got != want {
		t.Errorf("unexpected document:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderDocument_QuotesWhenNeeded(t *testing.T) {
	t.Parallel()

	doc := RenderDocument(model.ConvertedPage{Title: "Setup: step 1", SourceURL: "https://docs.example.com/"})
	line := strings.SplitN(doc, "\n", 3)[1]
	if line == "title: Setup: step 1" {
		t.Errorf("title with colon should be quoted, got %q", line)
	}
}

func TestParseFrontmatter_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{name: "no frontmatter", doc: "# Just markdown\n"},
		{name: "unterminated", doc: "---\ntitle: x\n\nbody\n"},
		{name: "bad yaml", doc: "---\ntitle: [unclosed\n---\n\nbody\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, _, err := ParseFrontmatter(tt.doc); !errors.Is(err, ErrFrontmatter) {
				t.Errorf("expected ErrFrontmatter, got %v", err)
			}
		})
	}
}
