package crawler

import (
	"fmt"
	"io"
	"sync"
)

// Progress receives one update per attempted URL.
// total is -1 when the number of pages is not known in advance, as in
// recursive crawls.
type Progress interface {
	Update(current, total int, label string)
}

// NopProgress discards updates.
type NopProgress struct{}

// Update implements Progress.
func (NopProgress) Update(int, int, string) {}

// LineProgress writes one line per update, e.g. "[3/10] https://...".
type LineProgress struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLineProgress creates a LineProgress writing to w.
func NewLineProgress(w io.Writer) *LineProgress {
	return &LineProgress{w: w}
}

// Update implements Progress.
func (p *LineProgress) Update(current, total int, label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if total < 0 {
		fmt.Fprintf(p.w, "[%d] %s\n", current, label)
		return
	}
	fmt.Fprintf(p.w, "[%d/%d] %s\n", current, total, label)
}
