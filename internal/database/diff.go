package database

import (
	"context"
	"sort"
)

// PageChange describes a URL present in both runs whose outcome differs.
type PageChange struct {
	URL        string
	FromStatus string
	ToStatus   string

	// ContentChanged is true when both runs wrote the page and the body
	// hashes differ.
	ContentChanged bool
}

// RunDiff is the page-level difference between two runs.
type RunDiff struct {
	From    int64
	To      int64
	Added   []string
	Removed []string
	Changed []PageChange
}

// Empty reports whether the runs have identical page outcomes.
func (d *RunDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// DiffRuns compares the pages of run from with the pages of run to.
// Added lists URLs only in to, Removed URLs only in from. A URL is Changed
// when its status differs or its content hash changed. All lists are
// sorted by URL.
func (hdb *HistoryDB) DiffRuns(ctx context.Context, from, to int64) (*RunDiff, error) {
	for _, id := range []int64{from, to} {
		if err := hdb.runExists(ctx, id); err != nil {
			return nil, err
		}
	}

	before, err := hdb.ListPages(ctx, from)
	if err != nil {
		return nil, err
	}
	after, err := hdb.ListPages(ctx, to)
	if err != nil {
		return nil, err
	}

	type outcome struct{ status, hash string }
	old := make(map[string]outcome, len(before))
	for _, r := range before {
		old[r.URL] = outcome{r.Status, r.Hash}
	}

	diff := &RunDiff{From: from, To: to}
	for _, r := range after {
		prev, ok := old[r.URL]
		if !ok {
			diff.Added = append(diff.Added, r.URL)
			continue
		}
		delete(old, r.URL)

		contentChanged := prev.hash != "" && r.Hash != "" && prev.hash != r.Hash
		if prev.status != r.Status || contentChanged {
			diff.Changed = append(diff.Changed, PageChange{
				URL:            r.URL,
				FromStatus:     prev.status,
				ToStatus:       r.Status,
				ContentChanged: contentChanged,
			})
		}
	}
	for u := range old {
		diff.Removed = append(diff.Removed, u)
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Slice(diff.Changed, func(i, j int) bool {
		return diff.Changed[i].URL < diff.Changed[j].URL
	})
	return diff, nil
}
