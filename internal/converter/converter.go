package converter

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/docmirror/internal/model"
)

// chromeSelector matches page furniture that never belongs in the body.
const chromeSelector = "script, style, noscript, nav, header, footer, aside, iframe, form, " +
	".header, .footer, .navigation, .nav, .sidebar, .menu, .breadcrumb, .toc, .comments, " +
	"[role=navigation], [role=banner], [role=contentinfo]"

// mainSelectors are tried in order; the first match is the content region.
var mainSelectors = []string{
	"main",
	"article",
	"[role=main]",
	".content",
	"#content",
	".documentation",
	".doc-content",
	".markdown-body",
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Converter converts HTML pages to Markdown.
// A Converter holds no per-page state and is safe for concurrent use.
type Converter struct {
	linkFilter func(string) bool
	now        func() time.Time
}

// Option configures a Converter.
type Option func(*Converter)

// WithLinkFilter sets the predicate applied to every extracted link.
// Without it, only links to the page's own host are kept.
func WithLinkFilter(filter func(string) bool) Option {
	return func(c *Converter) {
		c.linkFilter = filter
	}
}

// WithClock sets the time source for DownloadedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Converter) {
		c.now = now
	}
}

// New creates a Converter.
func New(opts ...Option) *Converter {
	c := &Converter{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert extracts the title, Markdown body and links of an HTML page.
//
// On failure the returned page is still usable: its Body is the raw HTML,
// Fallback is set, and the error wraps ErrConversion.
func (c *Converter) Convert(htmlBody []byte, pageURL string) (model.ConvertedPage, error) {
	page := model.ConvertedPage{
		SourceURL:    pageURL,
		DownloadedAt: c.now(),
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return c.fallback(page, htmlBody, nil), fmt.Errorf("%w: invalid page URL: %w", ErrConversion, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlBody))
	if err != nil {
		return c.fallback(page, htmlBody, base), fmt.Errorf("%w: parse: %w", ErrConversion, err)
	}

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = b
		}
	}

	page.Links = c.collectLinks(doc, base)
	page.Title = extractTitle(doc, base)

	doc.Find(chromeSelector).Remove()

	body, err := render(mainRegion(doc), base)
	if err != nil {
		page.Links = nil
		return c.fallback(page, htmlBody, base), fmt.Errorf("%w: render: %w", ErrConversion, err)
	}
	page.Body = body
	return page, nil
}

func (c *Converter) fallback(page model.ConvertedPage, raw []byte, base *url.URL) model.ConvertedPage {
	if page.Title == "" {
		page.Title = titleFromURL(base)
	}
	page.Body = string(raw)
	page.Fallback = true
	return page
}

// mainRegion returns the content root: the first mainSelectors match,
// then body, then the document itself.
func mainRegion(doc *goquery.Document) *html.Node {
	for _, sel := range mainSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s.Get(0)
		}
	}
	if s := doc.Find("body").First(); s.Length() > 0 {
		return s.Get(0)
	}
	return doc.Get(0)
}

// extractTitle prefers <title>, then the first <h1>, then the URL path.
func extractTitle(doc *goquery.Document, base *url.URL) string {
	if t := collapseSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	if h := collapseSpace(doc.Find("h1").First().Text()); h != "" {
		return h
	}
	return titleFromURL(base)
}

// titleFromURL humanizes the last path segment: "getting-started.html"
// becomes "Getting Started". The root path yields the host.
func titleFromURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	var last string
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			last = seg
		}
	}
	if last == "" {
		return u.Hostname()
	}
	if dec, err := url.PathUnescape(last); err == nil {
		last = dec
	}
	last = strings.TrimSuffix(last, path.Ext(last))
	last = strings.NewReplacer("-", " ", "_", " ").Replace(last)
	last = collapseSpace(last)
	if last == "" {
		return u.Hostname()
	}
	return cases.Title(language.English).String(last)
}

func collapseSpace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
