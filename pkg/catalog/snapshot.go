package catalog

import (
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// Snapshot is an immutable, ordered copy of the catalog.
type Snapshot struct {
	entries  []*Entry
	byID     map[string]*Entry
	codeTrie *patricia.Trie
	source   string
	loadedAt time.Time
}

// NewSnapshot builds a snapshot from entries in the given order.
// Entries without an ID are skipped, and for duplicate IDs the first one wins.
// The slice is copied so callers may reuse it.
func NewSnapshot(source string, entries []*Entry) *Snapshot {
	s := &Snapshot{
		entries:  make([]*Entry, 0, len(entries)),
		byID:     make(map[string]*Entry, len(entries)),
		codeTrie: patricia.NewTrie(),
		source:   source,
		loadedAt: time.Now(),
	}

	skipped := 0
	for _, e := range entries {
		if e == nil || e.ID == "" {
			skipped++
			continue
		}
		if _, dup := s.byID[e.ID]; dup {
			log.Warnf("Duplicate catalog id %q in %s, keeping the first", e.ID, source)
			skipped++
			continue
		}
		s.byID[e.ID] = e
		s.entries = append(s.entries, e)
		if e.HasCode() {
			s.codeTrie.Insert(patricia.Prefix(e.Code), e)
		}
	}

	if skipped > 0 {
		log.Warnf("Skipped %d catalog entries from %s", skipped, source)
	}
	log.Debugf("Built snapshot from %s: %d entries", source, len(s.entries))
	return s
}

// EmptySnapshot returns a snapshot with no entries.
func EmptySnapshot() *Snapshot {
	return NewSnapshot("empty", nil)
}

// Entries returns the entries in snapshot order. The returned slice must not
// be modified.
func (s *Snapshot) Entries() []*Entry {
	return s.entries
}

// Len returns the number of entries.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Source names where the snapshot was loaded from.
func (s *Snapshot) Source() string {
	return s.source
}

// LoadedAt is when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// ByID returns the entry with the given id.
func (s *Snapshot) ByID(id string) (*Entry, bool) {
	e, ok := s.byID[id]
	return e, ok
}

// ByCode returns the entry carrying exactly the given code.
func (s *Snapshot) ByCode(code string) (*Entry, bool) {
	if code == "" {
		return nil, false
	}
	item := s.codeTrie.Get(patricia.Prefix(code))
	if item == nil {
		return nil, false
	}
	return item.(*Entry), true
}

// Lookup resolves a reference that is either an entry id or a code.
func (s *Snapshot) Lookup(ref string) (*Entry, bool) {
	if e, ok := s.ByID(ref); ok {
		return e, true
	}
	return s.ByCode(ref)
}

// CodesWithPrefix returns up to limit entries whose code starts with prefix,
// sorted by code. A limit <= 0 means no limit.
func (s *Snapshot) CodesWithPrefix(prefix string, limit int) []*Entry {
	var out []*Entry
	err := s.codeTrie.VisitSubtree(patricia.Prefix(prefix), func(_ patricia.Prefix, item patricia.Item) error {
		out = append(out, item.(*Entry))
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting code index: %v", err)
		return nil
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Code < out[j].Code
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
