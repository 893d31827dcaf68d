/*
Package reserve checks whether a patron may reserve a book and records
reservations.

Check applies the eligibility rules; Ledger is an in-memory Reserver that runs
them before recording a reservation. Message turns any error coming out of a
reservation attempt into text fit to show the user.
*/
package reserve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bastiangx/bookserve/pkg/catalog"
)

// DefaultMaxActive is how many active reservations a patron may hold.
const DefaultMaxActive = 5

var (
	ErrNotFound        = errors.New("book not found")
	ErrUnavailable     = errors.New("book is not available")
	ErrNoCopies        = errors.New("no copies left")
	ErrLimitReached    = errors.New("reservation limit reached")
	ErrPatronBlocked   = errors.New("patron is blocked")
	ErrAlreadyReserved = errors.New("already reserved by patron")
	ErrNoPatron        = errors.New("no patron given")
)

// Patron is the person reserving. Identity only; authentication happens
// elsewhere.
type Patron struct {
	ID                 string
	Name               string
	ActiveReservations int
	Blocked            bool
}

// Policy holds the limits applied by Check.
type Policy struct {
	MaxActive int
}

// DefaultPolicy returns the stock limits.
func DefaultPolicy() Policy {
	return Policy{MaxActive: DefaultMaxActive}
}

// Reservation is a recorded hold on an entry.
type Reservation struct {
	ID        string    `msgpack:"id" json:"id"`
	EntryID   string    `msgpack:"e" json:"entry_id"`
	PatronID  string    `msgpack:"p" json:"patron_id"`
	CreatedAt time.Time `msgpack:"at" json:"created_at"`

	seq uint64
}

// Reserver places reservations.
type Reserver interface {
	Reserve(ctx context.Context, patron Patron, entryID string) (*Reservation, error)
}

// Check returns nil when patron may reserve entry, or the first rule that
// fails.
func Check(entry *catalog.Entry, patron Patron, policy Policy) error {
	if patron.ID == "" {
		return ErrNoPatron
	}
	if patron.Blocked {
		return ErrPatronBlocked
	}
	if entry == nil {
		return ErrNotFound
	}
	if entry.Status != catalog.StatusAvailable {
		return fmt.Errorf("%w: %s", ErrUnavailable, entry.Status.Label())
	}
	if entry.Copies <= 0 {
		return ErrNoCopies
	}
	if policy.MaxActive > 0 && patron.ActiveReservations >= policy.MaxActive {
		return fmt.Errorf("%w: %d of %d", ErrLimitReached, patron.ActiveReservations, policy.MaxActive)
	}
	return nil
}

// Message maps an error from a reservation attempt to a user-visible message.
func Message(err error) string {
	switch {
	case err == nil:
		return "Reservation confirmed."
	case errors.Is(err, ErrNoPatron):
		return "Please sign in to reserve books."
	case errors.Is(err, ErrPatronBlocked):
		return "Your account cannot place reservations. Please contact the library."
	case errors.Is(err, ErrNotFound):
		return "This book could not be found in the catalog."
	case errors.Is(err, ErrUnavailable):
		return "This book is not available for reservation right now."
	case errors.Is(err, ErrNoCopies):
		return "All copies of this book are currently taken."
	case errors.Is(err, ErrLimitReached):
		return "You have reached the maximum number of active reservations."
	case errors.Is(err, ErrAlreadyReserved):
		return "You have already reserved this book."
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again."
	case errors.Is(err, context.Canceled):
		return "The request was cancelled."
	default:
		return "Reservation failed. Please try again later."
	}
}
