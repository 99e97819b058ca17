package converter

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/docmirror/internal/model"
)

// DateFormat is the layout of date_downloaded.
const DateFormat = "2006-01-02 15:04:05"

const frontmatterDelimiter = "---"

// Frontmatter is the metadata block at the top of an output file.
type Frontmatter struct {
	Title          string `yaml:"title"`
	SourceURL      string `yaml:"source_url"`
	DateDownloaded string `yaml:"date_downloaded"`
}

// Downloaded parses DateDownloaded in the local time zone.
func (f Frontmatter) Downloaded() (time.Time, error) {
	return time.ParseInLocation(DateFormat, f.DateDownloaded, time.Local)
}

// RenderDocument returns the file content for page: the frontmatter
// block, a blank line, and the body ending in a newline.
func RenderDocument(page model.ConvertedPage) string {
	var b strings.Builder
	b.WriteString(frontmatterDelimiter + "\n")
	b.WriteString("title: " + yamlScalar(page.Title) + "\n")
	b.WriteString("source_url: " + yamlScalar(page.SourceURL) + "\n")
	b.WriteString("date_downloaded: " + page.DownloadedAt.Format(DateFormat) + "\n")
	b.WriteString(frontmatterDelimiter + "\n\n")
	b.WriteString(page.Body)
	if !strings.HasSuffix(page.Body, "\n") {
		b.WriteByte('\n')
	}
	return b.String()
}

// yamlScalar renders s as a plain scalar when that reads back as the same
// string, and as a quoted scalar otherwise.
func yamlScalar(s string) string {
	node := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	out, err := yaml.Marshal(node)
	text := strings.TrimSuffix(string(out), "\n")
	if err != nil || strings.Contains(text, "\n") {
		node.Style = yaml.DoubleQuotedStyle
		out, err = yaml.Marshal(node)
		if err != nil {
			return fmt.Sprintf("%q", s)
		}
		text = strings.TrimSuffix(string(out), "\n")
	}
	return text
}

// ParseFrontmatter splits a document produced by RenderDocument into its
// metadata and body.
func ParseFrontmatter(doc string) (Frontmatter, string, error) {
	doc = strings.ReplaceAll(doc, "\r\n", "\n")
	rest, ok := strings.CutPrefix(doc, frontmatterDelimiter+"\n")
	if !ok {
		return Frontmatter{}, "", fmt.Errorf("%w: missing opening delimiter", ErrFrontmatter)
	}

	var block, body string
	switch {
	case strings.HasPrefix(rest, frontmatterDelimiter+"\n"):
		body = rest[len(frontmatterDelimiter)+1:]
	default:
		end := strings.Index(rest, "\n"+frontmatterDelimiter+"\n")
		if end < 0 {
			if strings.HasSuffix(rest, "\n"+frontmatterDelimiter) {
				end = len(rest) - len(frontmatterDelimiter) - 1
				block, body = rest[:end], ""
				break
			}
			return Frontmatter{}, "", fmt.Errorf("%w: missing closing delimiter", ErrFrontmatter)
		}
		block = rest[:end]
		body = rest[end+len(frontmatterDelimiter)+2:]
	}

	var fm Frontmatter
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return Frontmatter{}, "", fmt.Errorf("%w: %w", ErrFrontmatter, err)
	}
	return fm, strings.TrimPrefix(body, "\n"), nil
}
