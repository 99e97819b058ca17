package output

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/nao1215/docmirror/internal/frontier"
)

const (
	// IndexName is used for the root path and for segments that sanitize
	// to nothing.
	IndexName = "index"

	// Extension is appended to every mapped file.
	Extension = ".md"

	// maxSegmentBytes keeps every path component well below common
	// file system name limits once a collision suffix is added.
	maxSegmentBytes = 200
)

// strippedExtensions are dropped from the last path segment.
var strippedExtensions = []string{".html", ".htm", ".php", ".asp", ".aspx"}

// suffixLengths are the hash prefix lengths tried, in order, when a path
// is already owned by another URL.
var suffixLengths = []int{8, 12, 16, sha256.Size * 2}

// Mapper assigns each URL a relative output path.
// The same URL always gets the same path, and different URLs never get
// paths that are equal after case folding. It is safe for concurrent use.
//
// Design decision: We resolve collisions with a suffix taken from the
// URL's SHA-256 rather than a counter because:
//  1. The suffix depends only on the URL, so a page keeps its file across
//     runs as long as the page that owns the plain path is unchanged
//  2. Counters would renumber every later page when one page disappears
//  3. Folding case before comparing keeps output portable to
//     case-insensitive file systems
type Mapper struct {
	mu     sync.Mutex
	fold   cases.Caser
	owners map[string]string
	byURL  map[string]string
}

// NewMapper creates a Mapper with an empty registry.
func NewMapper() *Mapper {
	return &Mapper{
		fold:   cases.Fold(),
		owners: make(map[string]string),
		byURL:  make(map[string]string),
	}
}

// Map returns the slash-separated output path for rawURL, relative to the
// output root.
func (m *Mapper) Map(rawURL string) string {
	key := frontier.Normalize(rawURL, true)

	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.byURL[key]; ok {
		return p
	}

	candidate := BasePath(rawURL)
	if owner, taken := m.owners[m.fold.String(candidate)]; taken && owner != key {
		sum := sha256.Sum256([]byte(key))
		digest := hex.EncodeToString(sum[:])
		stem := strings.TrimSuffix(candidate, Extension)
		for _, n := range suffixLengths {
			candidate = stem + "-" + digest[:n] + Extension
			if _, taken := m.owners[m.fold.String(candidate)]; !taken {
				break
			}
		}
	}

	m.owners[m.fold.String(candidate)] = key
	m.byURL[key] = candidate
	return candidate
}

// Len returns the number of URLs mapped so far.
func (m *Mapper) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byURL)
}

// BasePath returns the path for rawURL before collision handling:
// "/guide/install.html" becomes "guide/install.md" and "/" becomes
// "index.md". A trailing slash is ignored, so "/guide/" is "guide.md".
func BasePath(rawURL string) string {
	var raw []string
	if u, err := url.Parse(rawURL); err == nil {
		raw = strings.Split(u.EscapedPath(), "/")
	}

	segments := make([]string, 0, len(raw))
	for _, seg := range raw {
		if seg == "" {
			continue
		}
		if dec, err := url.PathUnescape(seg); err == nil {
			seg = dec
		}
		segments = append(segments, seg)
	}
	if len(segments) == 0 {
		return IndexName + Extension
	}

	last := len(segments) - 1
	segments[last] = stripExtension(segments[last])
	for i, seg := range segments {
		segments[i] = sanitizeSegment(seg)
	}
	return strings.Join(segments, "/") + Extension
}

func stripExtension(seg string) string {
	lower := strings.ToLower(seg)
	for _, ext := range strippedExtensions {
		if strings.HasSuffix(lower, ext) {
			return seg[:len(seg)-len(ext)]
		}
	}
	return seg
}

// sanitizeSegment makes seg safe as a single file or directory name.
func sanitizeSegment(seg string) string {
	seg = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || strings.ContainsRune(`<>:"/\|?*`, r) {
			return '_'
		}
		return r
	}, seg)
	seg = strings.TrimSpace(seg)

	switch seg {
	case "":
		return IndexName
	case ".", "..":
		return "_"
	}
	return truncateBytes(seg, maxSegmentBytes)
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
