package search

import "github.com/bastiangx/bookserve/pkg/catalog"

// TotalPages returns how many pages of size hold total results.
func TotalPages(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Offset returns the index of the first result on a 1-based page.
func Offset(page, size int) int {
	if page < 1 || size < 1 {
		return 0
	}
	return (page - 1) * size
}

// ClampPage keeps page inside [1, totalPages]. With no pages it returns 1.
func ClampPage(page, totalPages int) int {
	if totalPages < 1 || page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Window returns up to width consecutive page numbers centered on current,
// shifted to stay inside [1, totalPages].
func Window(current, totalPages, width int) []int {
	if totalPages < 1 || width < 1 {
		return nil
	}
	if width > totalPages {
		width = totalPages
	}
	current = ClampPage(current, totalPages)

	start := current - width/2
	if start < 1 {
		start = 1
	}
	if start+width-1 > totalPages {
		start = totalPages - width + 1
	}

	pages := make([]int, width)
	for i := range pages {
		pages[i] = start + i
	}
	return pages
}

// NewPage assembles a Page from an already sliced result set.
func NewPage(req Request, entries []*catalog.Entry, total int) *Page {
	return &Page{
		Request:    req,
		Entries:    entries,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: TotalPages(total, req.PageSize),
	}
}
