// Package database stores the docmirror run history in SQLite.
//
// Every crawl run is recorded as one row in the runs table plus one row per
// attempted URL in the pages table. The history is read by the history
// command to list past runs and to diff two runs of the same site; a crawl
// never consults it to skip or resume work.
//
// The database is a single docmirror.db file under the XDG data directory,
// opened with modernc.org/sqlite so that no CGO toolchain is needed.
package database
