package converter

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// skippedSchemes are link targets that never name a page.
var skippedSchemes = []string{"javascript:", "mailto:", "tel:", "data:"}

// collectLinks returns the http(s) targets of every <a href> in document
// order, resolved against base, without fragments or duplicates, and
// accepted by the link filter.
func (c *Converter) collectLinks(doc *goquery.Document, base *url.URL) []string {
	var links []string
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		target, ok := resolveLink(base, href)
		if !ok {
			return
		}
		if _, dup := seen[target]; dup {
			return
		}
		seen[target] = struct{}{}
		if !c.accept(base, target) {
			return
		}
		links = append(links, target)
	})
	return links
}

func (c *Converter) accept(base *url.URL, target string) bool {
	if c.linkFilter != nil {
		return c.linkFilter(target)
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), base.Hostname())
}

// resolveLink resolves href against base and drops the fragment.
// ok is false for empty, fragment-only, non-http(s) and unparsable targets.
func resolveLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	lower := strings.ToLower(href)
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return "", false
		}
	}

	u, err := base.Parse(href)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), true
}

// resolveRef makes ref absolute against base. Unparsable refs are returned
// trimmed but otherwise unchanged.
func resolveRef(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if base == nil || ref == "" {
		return ref
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}
