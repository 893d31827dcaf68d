// Package suggest is the core, computing ranked autocomplete candidates from an
// in-memory catalog snapshot.
//
// Candidates are drawn from three fields of each entry: title, author and
// identifier code. Title and author match case-insensitively by substring;
// codes match by raw, case-sensitive substring. Results are deduplicated, put
// in starts-with-first then shortest-first order, and capped.
package suggest

import "github.com/bastiangx/bookserve/pkg/catalog"

// ISuggester defines the interface for suggestion engines
type ISuggester interface {
	// Suggest returns ranked candidates for query over entries
	Suggest(entries []*catalog.Entry, query string) []Candidate

	// Stats returns counters about the engine
	Stats() map[string]int
}

var _ ISuggester = (*Engine)(nil)
