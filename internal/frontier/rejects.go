package frontier

import "github.com/bits-and-blooms/bloom/v3"

const (
	// expectedRejects sizes the filter. Past it the false positive rate
	// climbs and the count drifts further below the true value.
	expectedRejects = 100_000

	rejectsFalsePositiveRate = 0.001
)

// Rejects counts distinct links turned away by the scope filter.
//
// Design decision: membership lives only in a bloom filter. A recursive
// crawl of a large site can meet far more off-site links than pages, and
// none of them is ever fetched, so an exact set would hold memory for
// URLs that only feed one number in the report. The filter has a fixed
// size; a false positive makes Count one lower than the truth and has no
// effect on what is crawled.
type Rejects struct {
	filter    *bloom.BloomFilter
	keepQuery bool
	count     int
}

// NewRejects creates an empty counter. keepQuery has the same meaning as
// for WithKeepQuery, so the two agree on URL identity.
func NewRejects(keepQuery bool) *Rejects {
	return &Rejects{
		filter:    bloom.NewWithEstimates(expectedRejects, rejectsFalsePositiveRate),
		keepQuery: keepQuery,
	}
}

// Add records rawURL and reports whether it was counted as new.
func (r *Rejects) Add(rawURL string) bool {
	if r.filter.TestAndAddString(Normalize(rawURL, r.keepQuery)) {
		return false
	}
	r.count++
	return true
}

// Count returns the number of distinct links added.
func (r *Rejects) Count() int {
	return r.count
}
