package utils

// SeenFilter records keys that were already emitted so later duplicates can
// be dropped. Callers decide how a key is derived (folded or raw).
type SeenFilter struct {
	seen map[string]struct{}
}

// NewSeenFilter creates an empty filter.
func NewSeenFilter() *SeenFilter {
	return &SeenFilter{seen: make(map[string]struct{})}
}

// Add records key and returns true if it had not been seen before.
func (f *SeenFilter) Add(key string) bool {
	if _, ok := f.seen[key]; ok {
		return false
	}
	f.seen[key] = struct{}{}
	return true
}

// Len returns the number of distinct keys recorded.
func (f *SeenFilter) Len() int {
	return len(f.seen)
}
