// Package catalog talks to the listing catalog that owns listing records.
// Moderation only reads a listing's summary and changes its status.
package catalog

import "errors"

var (
	// ErrNotFound means the catalog has no listing with that id. Retrying
	// does not help.
	ErrNotFound = errors.New("catalog: listing not found")
	// ErrUnavailable means the catalog could not answer. The same call may
	// succeed later.
	ErrUnavailable = errors.New("catalog: unavailable")
)
