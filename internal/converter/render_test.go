package converter

import (
	"net/url"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func renderFragment(t *testing.T, fragment string) string {
	t.Helper()

	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	base, err := url.Parse("https://docs.example.com/guide/")
	if err != nil {
		t.Fatal(err)
	}
	out, err := render(doc, base)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return out
}

func TestRender_CodeBlocks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "plain",
			html: `<pre><code class="language-go">fmt.Println()</code></pre>`,
			want: "```go\nfmt.Println()\n```\n",
		},
		{
			name: "fence inside code",
			html: "<pre><code>before\n```\nafter</code></pre><p>tail para</p>",
			want: "````\nbefore\n```\nafter\n````\n\ntail para\n",
		},
		{
			name: "longer run inside code",
			html: "<pre><code class=\"language-md\">`````</code></pre>",
			want: "``````md\n`````\n``````\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := renderFragment(t, tt.html); got != tt.want {
				t.Errorf("render(%q)\n got: %q\nwant: %q", tt.html, got, tt.want)
			}
		})
	}
}

func TestRender_InlineCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want string
	}{
		{name: "plain", html: `<p>Run <code>make</code> first</p>`, want: "Run `make` first\n"},
		{name: "backtick", html: "<p>Use <code>a`b</code> here</p>", want: "Use `` a`b `` here\n"},
		{name: "double backtick", html: "<p><code>``x</code></p>", want: "``` ``x ```\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := renderFragment(t, tt.html); got != tt.want {
				t.Errorf("render(%q)\n got: %q\nwant: %q", tt.html, got, tt.want)
			}
		})
	}
}

// TestRender_ListBlocks tests that block content inside list items keeps
// its structure and sits under the item's marker.
func TestRender_ListBlocks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "code in bullet item",
			html: "<ul><li>Install:<pre><code>go get x\ngo build</code></pre></li></ul>",
			want: "- Install:\n\n  ```\n  go get x\n  go build\n  ```\n",
		},
		{
			name: "ordered steps with code",
			html: `<ol><li><p>Install:</p><pre><code class="language-sh">go install x</code></pre></li><li>Run it</li></ol>`,
			want: "1. Install:\n\n   ```sh\n   go install x\n   ```\n2. Run it\n",
		},
		{
			name: "paragraphs",
			html: `<ul><li><p>A</p><p>B</p></li></ul>`,
			want: "- A\n\n  B\n",
		},
		{
			name: "quote in item",
			html: `<ul><li>See<blockquote>quoted</blockquote></li></ul>`,
			want: "- See\n\n  > quoted\n",
		},
		{
			name: "nested list under ordered item",
			html: `<ol><li>One<ul><li>Sub</li></ul></li></ol>`,
			want: "1. One\n   - Sub\n",
		},
		{
			name: "hard break",
			html: `<ul><li>a<br>b</li></ul>`,
			want: "- a  \n  b\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := renderFragment(t, tt.html); got != tt.want {
				t.Errorf("render(%q)\n got: %q\nwant: %q", tt.html, got, tt.want)
			}
		})
	}
}

func TestLongestRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{in: "", want: 0},
		{in: "abc", want: 0},
		{in: "a`b", want: 1},
		{in: "``a```b`", want: 3},
	}
	for _, tt := range tests {
		if got := longestRun(tt.in, '`'); got != tt.want {
			t.Errorf("longestRun(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
