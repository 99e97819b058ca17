package discovery

import (
	"bytes"
	"compress/gzip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// Kind distinguishes the two sitemap document types.
type Kind int

const (
	// KindURLSet is a <urlset> listing page URLs.
	KindURLSet Kind = iota

	// KindIndex is a <sitemapindex> listing further sitemaps.
	KindIndex
)

// String returns the root element name of the kind.
func (k Kind) String() string {
	if k == KindIndex {
		return "sitemapindex"
	}
	return "urlset"
}

// Document is a parsed sitemap.
type Document struct {
	// Kind tells whether Locs are pages or sitemaps.
	Kind Kind

	// Locs are the trimmed, non-blank <loc> values in document order
	// with exact duplicates removed.
	Locs []string
}

// maxSitemapSize bounds the decompressed size of a gzipped sitemap.
// The sitemaps.org protocol caps uncompressed sitemaps at 50MB.
const maxSitemapSize = 50 * 1024 * 1024

type locEntry struct {
	Loc string `xml:"loc"`
}

// sitemapXML matches both root elements; unknown namespaces are accepted.
type sitemapXML struct {
	XMLName  xml.Name
	URLs     []locEntry `xml:"url"`
	Sitemaps []locEntry `xml:"sitemap"`
}

// ParseSitemap parses a <urlset> or <sitemapindex> document.
// Gzip-compressed input is decompressed first. Any other root element
// or malformed XML yields an error matching ErrSitemapParse.
// Parsing the same bytes always yields the same Document.
func ParseSitemap(data []byte) (Document, error) {
	if isGzip(data) {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return Document{}, fmt.Errorf("%w: gzip: %w", ErrSitemapParse, err)
		}
		defer gz.Close()
		data, err = io.ReadAll(io.LimitReader(gz, maxSitemapSize))
		if err != nil {
			return Document{}, fmt.Errorf("%w: gzip: %w", ErrSitemapParse, err)
		}
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel

	var raw sitemapXML
	if err := dec.Decode(&raw); err != nil {
		return Document{}, fmt.Errorf("%w: %w", ErrSitemapParse, err)
	}

	var doc Document
	var entries []locEntry
	switch raw.XMLName.Local {
	case "urlset":
		doc.Kind = KindURLSet
		entries = raw.URLs
	case "sitemapindex":
		doc.Kind = KindIndex
		entries = raw.Sitemaps
	default:
		return Document{}, fmt.Errorf("%w: unexpected root element <%s>", ErrSitemapParse, raw.XMLName.Local)
	}

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		loc := strings.TrimSpace(e.Loc)
		if loc == "" {
			continue
		}
		if _, dup := seen[loc]; dup {
			continue
		}
		seen[loc] = struct{}{}
		doc.Locs = append(doc.Locs, loc)
	}
	return doc, nil
}

func isGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}
