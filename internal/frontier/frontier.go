package frontier

import (
	"github.com/nao1215/docmirror/internal/model"
)

// Frontier is the FIFO queue of pending targets plus the set of every URL
// ever enqueued. It is not safe for concurrent use; only the crawl loop
// touches it.
type Frontier struct {
	queue     []model.CrawlTarget
	seen      map[string]struct{}
	maxPages  int
	dequeued  int
	keepQuery bool
}

// Option configures a Frontier.
type Option func(*Frontier)

// WithMaxPages caps the number of targets Next will hand out. Zero means unlimited.
func WithMaxPages(n int) Option {
	return func(f *Frontier) {
		f.maxPages = n
	}
}

// WithKeepQuery controls whether the query string is part of URL identity.
func WithKeepQuery(keep bool) Option {
	return func(f *Frontier) {
		f.keepQuery = keep
	}
}

// New creates an empty Frontier. The query string is part of URL identity
// unless WithKeepQuery(false) is given.
func New(opts ...Option) *Frontier {
	f := &Frontier{
		seen:      make(map[string]struct{}),
		keepQuery: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Enqueue adds target unless capacity is exhausted or its normalized URL
// was seen before. It reports whether the target was added.
func (f *Frontier) Enqueue(target model.CrawlTarget) bool {
	if !f.HasCapacity() {
		return false
	}
	key := Normalize(target.URL, f.keepQuery)
	if _, ok := f.seen[key]; ok {
		return false
	}
	f.seen[key] = struct{}{}
	f.queue = append(f.queue, target)
	return true
}

// Next dequeues the oldest pending target. ok is false when the queue is
// empty or capacity is exhausted.
func (f *Frontier) Next() (target model.CrawlTarget, ok bool) {
	if len(f.queue) == 0 || !f.HasCapacity() {
		return model.CrawlTarget{}, false
	}
	target = f.queue[0]
	f.queue[0] = model.CrawlTarget{}
	f.queue = f.queue[1:]
	f.dequeued++
	return target, true
}

// HasCapacity reports whether more targets may be dequeued.
func (f *Frontier) HasCapacity() bool {
	return f.maxPages <= 0 || f.dequeued < f.maxPages
}

// Seen reports whether rawURL's normalized form was ever enqueued.
func (f *Frontier) Seen(rawURL string) bool {
	_, ok := f.seen[Normalize(rawURL, f.keepQuery)]
	return ok
}

// Pending returns the URLs still queued, in order.
func (f *Frontier) Pending() []string {
	out := make([]string, len(f.queue))
	for i, t := range f.queue {
		out[i] = t.URL
	}
	return out
}

// Len returns the number of queued targets.
func (f *Frontier) Len() int {
	return len(f.queue)
}

// Dequeued returns how many targets Next has handed out.
func (f *Frontier) Dequeued() int {
	return f.dequeued
}
