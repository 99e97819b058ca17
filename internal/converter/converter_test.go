package converter

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"
)

var fixedClock = func() time.Time {
	return time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
}

const docsPage = `<!DOCTYPE html>
<html>
<head>
  <title>
    Install   Guide
  </title>
  <style>body { color: red; }</style>
  <script>console.log("x")</script>
</head>
<body>
  <header class="header"><a href="/">Home</a></header>
  <nav>
    <ul>
      <li><a href="/guide">Guide</a></li>
      <li><a href="/api#top">API</a></li>
      <li><a href="https://other.org/x">Other</a></li>
      <li><a href="mailto:team@example.com">Mail</a></li>
      <li><a href="javascript:void(0)">JS</a></li>
    </ul>
  </nav>
  <main>
    <h1>Installing</h1>
    <p>Run the <strong>installer</strong> and see <a href="/guide/next#step">the next step</a>.</p>
    <pre><code class="language-go">package main

func main() {}
</code></pre>
    <ul>
      <li>First</li>
      <li>Second
        <ul><li>Nested</li></ul>
      </li>
    </ul>
    <ol start="3"><li>Three</li><li>Four</li></ol>
    <table>
      <thead><tr><th>Flag</th><th>Meaning</th></tr></thead>
      <tbody><tr><td><code>-v</code></td><td>verbose | loud</td></tr></tbody>
    </table>
    <blockquote><p>Note this.</p></blockquote>
    <p>Line one<br>Line two</p>
    <hr>
    <p><em>end</em> <del>old</del> <img src="img/a.png" alt="diagram"></p>
    <aside class="sidebar">Sidebar text</aside>
  </main>
  <footer>Copyright</footer>
</body>
</html>`

func TestConvert(t *testing.T) {
	t.Parallel()

	c := New(WithClock(fixedClock))
	page, err := c.Convert([]byte(docsPage), "https://docs.example.com/guide/install")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	if page.Title != "Install Guide" {
		t.Errorf("expected title %q, got %q", "Install Guide", page.Title)
	}
	if page.SourceURL != "https://docs.example.com/guide/install" {
		t.Errorf("unexpected source URL %q", page.SourceURL)
	}
	if !page.DownloadedAt.Equal(fixedClock()) {
		t.Errorf("unexpected download time %v", page.DownloadedAt)
	}
	if page.Fallback {
		t.Error("Fallback should be false")
	}

	for _, want := range []string{
		"# Installing",
		"Run the **installer** and see [the next step](https://docs.example.com/guide/next).",
		"```go\npackage main\n\nfunc main() {}\n```",
		"- First\n- Second\n  - Nested",
		"3. Three\n4. Four",
		"Flag",
		"Meaning",
		"`-v`",
		"verbose",
		"> Note this.",
		"Line one  \nLine two",
		"---",
		"*end*",
		"~~old~~",
		"![diagram](https://docs.example.com/guide/img/a.png)",
	} {
		if !strings.Contains(page.Body, want) {
			t.Errorf("body missing %q\n--- body ---\n%s", want, page.Body)
		}
	}

	for _, unwanted := range []string{"Home", "Sidebar text", "Copyright", "console.log", "color: red", "Other"} {
		if strings.Contains(page.Body, unwanted) {
			t.Errorf("body should not contain %q\n--- body ---\n%s", unwanted, page.Body)
		}
	}
	if strings.Contains(page.Body, "\n\n\n") {
		t.Errorf("body contains three consecutive newlines:\n%s", page.Body)
	}
	if !strings.HasSuffix(page.Body, "\n") {
		t.Error("body should end with a newline")
	}
}

// TestConvert_Links tests that navigation links are collected before chrome
// removal and filtered to the page's site.
func TestConvert_Links(t *testing.T) {
	t.Parallel()

	c := New(WithClock(fixedClock))
	page, err := c.Convert([]byte(docsPage), "https://docs.example.com/guide/install")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	want := []string{
		"https://docs.example.com/",
		"https://docs.example.com/guide",
		"https://docs.example.com/api",
		"https://docs.example.com/guide/next",
	}
	if !slices.Equal(page.Links, want) {
		t.Errorf("expected links %v, got %v", want, page.Links)
	}
}

func TestConvert_LinkFilter(t *testing.T) {
	t.Parallel()

	var offered []string
	c := New(WithLinkFilter(func(u string) bool {
		offered = append(offered, u)
		return strings.Contains(u, "other.org")
	}))
	page, err := c.Convert([]byte(docsPage), "https://docs.example.com/guide/install")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	if !slices.Equal(page.Links, []string{"https://other.org/x"}) {
		t.Errorf("filter result not applied: %v", page.Links)
	}
	for _, u := range offered {
		if strings.HasPrefix(u, "mailto:") || strings.HasPrefix(u, "javascript:") || strings.Contains(u, "#") {
			t.Errorf("filter should never see %q", u)
		}
	}
}

func TestConvert_Title(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		url  string
		want string
	}{
		{
			name: "h1 when title empty",
			html: `<html><head><title>  </title></head><body><h1>Quick <em>Start</em></h1></body></html>`,
			url:  "https://docs.example.com/qs",
			want: "Quick Start",
		},
		{
			name: "humanized path segment",
			html: `<html><body><p>x</p></body></html>`,
			url:  "https://docs.example.com/guide/getting-started_now.html",
			want: "Getting Started Now",
		},
		{
			name: "trailing slash uses last segment",
			html: `<p>x</p>`,
			url:  "https://docs.example.com/reference/cli-flags/",
			want: "Cli Flags",
		},
		{
			name: "root uses host",
			html: `<p>x</p>`,
			url:  "https://docs.example.com/",
			want: "docs.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			page, err := New().Convert([]byte(tt.html), tt.url)
			if err != nil {
				t.Fatalf("Convert: %v", err)
			}
			if page.Title != tt.want {
				t.Errorf("expected title %q, got %q", tt.want, page.Title)
			}
		})
	}
}

func TestConvert_MainRegion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		html    string
		want    string
		notWant string
	}{
		{
			name:    "article",
			html:    `<body><div>outside</div><article><p>inside</p></article></body>`,
			want:    "inside",
			notWant: "outside",
		},
		{
			name:    "content class",
			html:    `<body><div class="banner">promo</div><div class="content"><p>docs</p></div></body>`,
			want:    "docs",
			notWant: "promo",
		},
		{
			name:    "body fallback",
			html:    `<body><div class="menu">menu</div><p>plain</p></body>`,
			want:    "plain",
			notWant: "menu",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			page, err := New().Convert([]byte(tt.html), "https://docs.example.com/x")
			if err != nil {
				t.Fatalf("Convert: %v", err)
			}
			if !strings.Contains(page.Body, tt.want) {
				t.Errorf("expected %q in body %q", tt.want, page.Body)
			}
			if strings.Contains(page.Body, tt.notWant) {
				t.Errorf("did not expect %q in body %q", tt.notWant, page.Body)
			}
		})
	}
}

func TestConvert_BaseHref(t *testing.T) {
	t.Parallel()

	html := `<html><head><base href="https://docs.example.com/v2/"></head><body><a href="intro">Intro</a></body></html>`
	page, err := New().Convert([]byte(html), "https://docs.example.com/index.html")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !slices.Equal(page.Links, []string{"https://docs.example.com/v2/intro"}) {
		t.Errorf("unexpected links %v", page.Links)
	}
}

func TestConvert_Fallback(t *testing.T) {
	t.Parallel()

	raw := "<html><body><main>" + strings.Repeat("<div>", maxNesting+10) + "deep" +
		strings.Repeat("</div>", maxNesting+10) + "</main></body></html>"

	page, err := New().Convert([]byte(raw), "https://docs.example.com/deep-page")
	if !errors.Is(err, ErrConversion) {
		t.Fatalf("expected ErrConversion, got %v", err)
	}
	if !page.Fallback {
		t.Error("Fallback should be set")
	}
	if page.Body != raw {
		t.Error("fallback body should be the raw HTML")
	}
	if page.Title != "Deep Page" {
		t.Errorf("expected title from URL, got %q", page.Title)
	}
}

func TestConvert_EmptyDocument(t *testing.T) {
	t.Parallel()

	page, err := New().Convert(nil, "https://docs.example.com/empty")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if page.Body != "" {
		t.Errorf("expected empty body, got %q", page.Body)
	}
	if page.Title != "Empty" {
		t.Errorf("expected title %q, got %q", "Empty", page.Title)
	}
}
