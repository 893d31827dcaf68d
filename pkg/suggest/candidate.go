package suggest

import "github.com/bastiangx/bookserve/pkg/catalog"

// Kind is the field a candidate was derived from.
type Kind int

const (
	KindTitle Kind = iota
	KindAuthor
	KindCode
)

// Label is the display tag shown next to a candidate.
func (k Kind) Label() string {
	switch k {
	case KindTitle:
		return "TITLE"
	case KindAuthor:
		return "AUTHOR"
	case KindCode:
		return "ISBN"
	default:
		return "UNKNOWN"
	}
}

func (k Kind) String() string {
	switch k {
	case KindTitle:
		return "title"
	case KindAuthor:
		return "author"
	case KindCode:
		return "code"
	default:
		return "unknown"
	}
}

// Candidate is one ranked suggestion.
type Candidate struct {
	Kind  Kind
	Text  string
	Entry *catalog.Entry
}

// Secondary is the extra text shown under a candidate: the linked entry's
// title for author and code candidates, nothing for titles.
func (c Candidate) Secondary() string {
	if c.Kind == KindTitle || c.Entry == nil {
		return ""
	}
	return c.Entry.Title
}
