/*
Package search runs paginated catalog searches.

A Request names a field (all, title, author or isbn), the query text and the
page wanted. Searchers return a Page carrying the entries plus enough totals to
render a page strip. The Searcher interface stands for the remote catalog
search; Index is an in-memory implementation over the local snapshot.
*/
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bastiangx/bookserve/pkg/catalog"
)

// DefaultPageSize is used when a request leaves PageSize unset.
const DefaultPageSize = 10

var (
	ErrUnknownField = errors.New("unknown search field")
	ErrQueryTooLong = errors.New("search query too long")
	ErrIndexClosed  = errors.New("search index closed")
)

// Field scopes a search to one catalog field.
type Field string

const (
	FieldAll    Field = "all"
	FieldTitle  Field = "title"
	FieldAuthor Field = "author"
	FieldISBN   Field = "isbn"
)

// ParseField maps a user supplied field name to a Field. Empty means all.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FieldAll, nil
	case "title":
		return FieldTitle, nil
	case "author":
		return FieldAuthor, nil
	case "isbn", "code":
		return FieldISBN, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// Request is one search call.
type Request struct {
	Field    Field
	Text     string
	Page     int // 1-based
	PageSize int
}

// Normalize fills defaults and clamps the page to at least 1.
func (r Request) Normalize() Request {
	if r.Field == "" {
		r.Field = FieldAll
	}
	r.Text = strings.TrimSpace(r.Text)
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = DefaultPageSize
	}
	return r
}

// WithPage returns a copy of r asking for another page.
func (r Request) WithPage(page int) Request {
	r.Page = page
	return r
}

// Page is one page of search results.
type Page struct {
	Request    Request
	Entries    []*catalog.Entry
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// HasNext reports whether a later page exists.
func (p *Page) HasNext() bool {
	return p.Page < p.TotalPages
}

// HasPrev reports whether an earlier page exists.
func (p *Page) HasPrev() bool {
	return p.Page > 1
}

// Range returns the 1-based positions of the first and last entry on the page,
// or 0, 0 when the page is empty.
func (p *Page) Range() (from, to int) {
	if len(p.Entries) == 0 {
		return 0, 0
	}
	from = Offset(p.Page, p.PageSize) + 1
	return from, from + len(p.Entries) - 1
}

// Searcher runs searches against a catalog backend.
type Searcher interface {
	Search(ctx context.Context, req Request) (*Page, error)
}
