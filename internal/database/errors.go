package database

import "errors"

var (
	// ErrNotFound is returned when the database file does not exist and
	// Options.CreateIfNotExists is false.
	ErrNotFound = errors.New("history database not found")

	// ErrRunNotFound is returned when a run id has no record.
	ErrRunNotFound = errors.New("run not found")
)
