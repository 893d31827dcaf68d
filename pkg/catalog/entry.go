/*
Package catalog holds the locally cached copy of the library catalog.

A Snapshot is the ordered list of entries fetched from a Source at one point
in time. Snapshots are never mutated after they are built; a Store swaps in a
new one on Refresh, and a Watcher can trigger that refresh when the catalog
file on disk changes.

Catalog files may be JSON, YAML, TOML or msgpack:

	{"entries": [{"id": "b1", "title": "Dune", "author": "Frank Herbert", "code": "9780441013593"}]}

Staleness relative to the authoritative catalog is accepted; there is no
invalidation protocol beyond re-fetching.
*/
package catalog

import "strings"

// Status is the availability status of a catalog entry.
type Status string

const (
	StatusAvailable  Status = "available"
	StatusReserved   Status = "reserved"
	StatusCheckedOut Status = "checked_out"
	StatusLost       Status = "lost"
)

// ParseStatus normalizes a status string. Unknown or empty values map to
// StatusAvailable only when the entry still reports copies, which mirrors how
// the backend fills in missing statuses.
func ParseStatus(s string, copies int) Status {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusAvailable:
		return StatusAvailable
	case StatusReserved:
		return StatusReserved
	case StatusCheckedOut, "checked-out", "checkedout", "loaned":
		return StatusCheckedOut
	case StatusLost:
		return StatusLost
	}
	if copies > 0 {
		return StatusAvailable
	}
	return StatusCheckedOut
}

// Label returns a human readable status.
func (s Status) Label() string {
	switch s {
	case StatusAvailable:
		return "Available"
	case StatusReserved:
		return "Reserved"
	case StatusCheckedOut:
		return "Checked out"
	case StatusLost:
		return "Lost"
	default:
		return "Unknown"
	}
}

// Entry is one book record as known to the search client.
type Entry struct {
	ID       string `json:"id" yaml:"id" toml:"id" msgpack:"id"`
	Title    string `json:"title" yaml:"title" toml:"title" msgpack:"t"`
	Author   string `json:"author" yaml:"author" toml:"author" msgpack:"a"`
	Code     string `json:"code,omitempty" yaml:"code,omitempty" toml:"code,omitempty" msgpack:"c,omitempty"`
	Category string `json:"category,omitempty" yaml:"category,omitempty" toml:"category,omitempty" msgpack:"g,omitempty"`
	Status   Status `json:"status,omitempty" yaml:"status,omitempty" toml:"status,omitempty" msgpack:"s,omitempty"`
	Copies   int    `json:"copies" yaml:"copies" toml:"copies" msgpack:"n"`
}

// HasCode reports whether the entry carries an identifying code.
func (e *Entry) HasCode() bool {
	return e.Code != ""
}

// Available reports whether at least one copy can be reserved.
func (e *Entry) Available() bool {
	return e.Status == StatusAvailable && e.Copies > 0
}
