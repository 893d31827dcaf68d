package reserve

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bastiangx/bookserve/pkg/catalog"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// SnapshotSource hands out the snapshot used to resolve entries.
type SnapshotSource interface {
	Current() *catalog.Snapshot
}

// Ledger is an in-memory Reserver. Snapshots are immutable, so the copies a
// ledger hands out are tracked here and subtracted from the catalog count.
type Ledger struct {
	snapshots SnapshotSource
	policy    Policy
	now       func() time.Time

	mu   sync.Mutex
	seq  uint64
	byID map[string]*Reservation
	// entry id -> copies held
	held map[string]int
	// patron id -> entry id -> reservation id
	byPatron map[string]map[string]string
}

// NewLedger creates a ledger resolving entries through snapshots.
func NewLedger(snapshots SnapshotSource, policy Policy) *Ledger {
	return &Ledger{
		snapshots: snapshots,
		policy:    policy,
		now:       time.Now,
		byID:      make(map[string]*Reservation),
		held:      make(map[string]int),
		byPatron:  make(map[string]map[string]string),
	}
}

// Reserve places a hold on the entry named by ref, which may be an entry id
// or a code.
func (l *Ledger) Reserve(ctx context.Context, patron Patron, ref string) (*Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, ok := l.snapshots.Current().Lookup(ref)
	if !ok {
		// patron rules still come first
		return nil, fmt.Errorf("reserve %q: %w", ref, Check(nil, patron, l.policy))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.byPatron[patron.ID][entry.ID]; dup && patron.ID != "" {
		return nil, fmt.Errorf("reserve %q: %w", ref, ErrAlreadyReserved)
	}

	// check against what is left after holds recorded here
	effective := *entry
	effective.Copies -= l.held[entry.ID]
	if active := len(l.byPatron[patron.ID]); active > patron.ActiveReservations {
		patron.ActiveReservations = active
	}
	if err := Check(&effective, patron, l.policy); err != nil {
		log.Debugf("Reservation of %s by %s rejected: %v", entry.ID, patron.ID, err)
		return nil, fmt.Errorf("reserve %q: %w", ref, err)
	}

	r := &Reservation{
		ID:        uuid.New().String(),
		EntryID:   entry.ID,
		PatronID:  patron.ID,
		CreatedAt: l.now(),
	}
	l.seq++
	r.seq = l.seq
	l.byID[r.ID] = r
	l.held[entry.ID]++
	if l.byPatron[patron.ID] == nil {
		l.byPatron[patron.ID] = make(map[string]string)
	}
	l.byPatron[patron.ID][entry.ID] = r.ID

	log.Infof("Reserved %q for %s (%s)", entry.Title, patron.ID, r.ID)
	return r, nil
}

// Cancel releases a reservation.
func (l *Ledger) Cancel(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.byID[id]
	if !ok {
		return fmt.Errorf("cancel %s: %w", id, ErrNotFound)
	}
	delete(l.byID, id)
	l.held[r.EntryID]--
	if l.held[r.EntryID] <= 0 {
		delete(l.held, r.EntryID)
	}
	delete(l.byPatron[r.PatronID], r.EntryID)
	return nil
}

// Remaining returns how many copies of the entry are still free.
func (l *Ledger) Remaining(entry *catalog.Entry) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	left := entry.Copies - l.held[entry.ID]
	if left < 0 {
		return 0
	}
	return left
}

// List returns the patron's reservations in the order they were placed.
func (l *Ledger) List(patronID string) []*Reservation {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*Reservation, 0, len(l.byPatron[patronID]))
	for _, id := range l.byPatron[patronID] {
		out = append(out, l.byID[id])
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].seq < out[j].seq
	})
	return out
}
