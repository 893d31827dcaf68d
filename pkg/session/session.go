/*
Package session drives the search input: it debounces typed queries into
suggestion computations and tracks dropdown navigation.

States move Idle -> Pending(query) -> Settled(candidates). Once candidates
exist, a cursor in [-1, len-1] marks the highlighted one (Navigating when it is
>= 0). Enter turns the highlighted candidate, or the raw query when nothing is
highlighted, into a search request.

Timer callbacks run on their own goroutines, so every mutation goes through
the session mutex; there is still exactly one writer of the candidate list,
the settle callback of the latest scheduled computation.
*/
package session

import (
	"context"
	"sync"
	"time"

	"github.com/bastiangx/bookserve/internal/utils"
	"github.com/bastiangx/bookserve/pkg/catalog"
	"github.com/bastiangx/bookserve/pkg/search"
	"github.com/bastiangx/bookserve/pkg/suggest"
	"github.com/charmbracelet/log"
)

// Suggester computes candidates for a query.
type Suggester interface {
	Suggest(entries []*catalog.Entry, query string) []suggest.Candidate
}

// SnapshotSource hands out the snapshot to search. *catalog.Store implements it.
type SnapshotSource interface {
	Current() *catalog.Snapshot
}

// State is the phase of the input.
type State int

const (
	StateIdle State = iota
	StatePending
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Key is a navigation key.
type Key int

const (
	KeyDown Key = iota
	KeyUp
	KeyEnter
	KeyEscape
)

// View is a copy of the session state for rendering.
type View struct {
	State      State
	Query      string
	Candidates []suggest.Candidate
	Cursor     int
	Open       bool
	// NoMatches is set when a long enough query settled with no candidates.
	NoMatches bool
}

// Navigating reports whether a candidate is highlighted.
func (v View) Navigating() bool {
	return v.Cursor >= 0
}

// Selected returns the highlighted candidate.
func (v View) Selected() (suggest.Candidate, bool) {
	if v.Cursor < 0 || v.Cursor >= len(v.Candidates) {
		return suggest.Candidate{}, false
	}
	return v.Candidates[v.Cursor], true
}

// Options configure a Session.
type Options struct {
	Delay       time.Duration
	Scheduler   Scheduler
	MinQueryLen int
	PageSize    int
	// OnSettle is called with the new view after each computation lands.
	OnSettle func(View)
	// OnSearch is called with every search request Enter produces.
	OnSearch func(search.Request)
}

// Session is the state machine behind one search box.
type Session struct {
	engine    Suggester
	snapshots SnapshotSource
	debouncer *Debouncer
	opts      Options
	ctx       context.Context
	cancel    context.CancelFunc

	mu         sync.Mutex
	query      string
	candidates []suggest.Candidate
	cursor     int
	open       bool
	pending    bool
	settled    bool
}

// New creates a session that computes suggestions with engine over the
// snapshot currently held by snapshots.
func New(engine Suggester, snapshots SnapshotSource, opts Options) *Session {
	if opts.MinQueryLen <= 0 {
		opts.MinQueryLen = suggest.DefaultMinQueryLen
	}
	if opts.PageSize <= 0 {
		opts.PageSize = search.DefaultPageSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		engine:    engine,
		snapshots: snapshots,
		debouncer: NewDebouncer(opts.Delay, opts.Scheduler),
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		cursor:    -1,
	}
}

// Input replaces the query text and restarts the debounce delay. Any
// computation still waiting is dropped.
func (s *Session) Input(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.query = query
	s.cursor = -1
	s.pending = true
	s.debouncer.Schedule(s.ctx, func(ctx context.Context, gen uint64) {
		s.settle(ctx, gen, query)
	})
}

func (s *Session) settle(ctx context.Context, gen uint64, query string) {
	candidates := s.engine.Suggest(s.snapshots.Current().Entries(), query)

	s.mu.Lock()
	if ctx.Err() != nil || !s.debouncer.Current(gen) {
		s.mu.Unlock()
		log.Debugf("Dropped stale suggestions for %q", query)
		return
	}
	s.debouncer.Done(gen)
	s.candidates = candidates
	s.cursor = -1
	s.open = len(candidates) > 0
	s.pending = false
	s.settled = true
	view := s.viewLocked()
	onSettle := s.opts.OnSettle
	s.mu.Unlock()

	if onSettle != nil {
		onSettle(view)
	}
}

// Key applies a navigation key. For Enter it returns the search request that
// was issued.
func (s *Session) Key(k Key) (search.Request, bool) {
	s.mu.Lock()

	switch k {
	case KeyDown:
		if s.open && s.cursor < len(s.candidates)-1 {
			s.cursor++
		}
	case KeyUp:
		if s.open && s.cursor > -1 {
			s.cursor--
		}
	case KeyEscape:
		s.debouncer.Cancel()
		s.pending = false
		s.candidates = nil
		s.cursor = -1
		s.open = false
		s.settled = false
	case KeyEnter:
		req := s.commitLocked()
		onSearch := s.opts.OnSearch
		s.mu.Unlock()
		if onSearch != nil {
			onSearch(req)
		}
		return req, true
	}

	s.mu.Unlock()
	return search.Request{}, false
}

// commitLocked builds the search request for Enter and closes the dropdown.
func (s *Session) commitLocked() search.Request {
	req := search.Request{Field: search.FieldAll, Text: s.query, Page: 1, PageSize: s.opts.PageSize}
	if s.open && s.cursor >= 0 && s.cursor < len(s.candidates) {
		c := s.candidates[s.cursor]
		s.query = c.Text
		req.Field = FieldFor(c.Kind)
		req.Text = c.Text
	}

	s.debouncer.Cancel()
	s.pending = false
	s.open = false
	s.cursor = -1
	return req
}

// Focus re-shows the last computed candidates, without recomputing them.
func (s *Session) Focus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.candidates) > 0 {
		s.open = true
	}
}

// ClickOutside collapses the dropdown and resets the cursor. The query and
// the candidates are kept so Focus can bring them back.
func (s *Session) ClickOutside() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	s.cursor = -1
}

// View returns a copy of the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{
		Query:  s.query,
		Cursor: s.cursor,
		Open:   s.open,
	}
	switch {
	case s.pending:
		v.State = StatePending
	case s.settled:
		v.State = StateSettled
	default:
		v.State = StateIdle
	}
	if len(s.candidates) > 0 {
		v.Candidates = append([]suggest.Candidate(nil), s.candidates...)
	}
	v.NoMatches = v.State == StateSettled && len(s.candidates) == 0 &&
		utils.CharLen(s.query) >= s.opts.MinQueryLen
	return v
}

// Close cancels any pending computation. The session must not be used after.
func (s *Session) Close() {
	s.debouncer.Cancel()
	s.cancel()
}

// FieldFor maps a candidate kind to the search field it scopes.
func FieldFor(k suggest.Kind) search.Field {
	switch k {
	case suggest.KindTitle:
		return search.FieldTitle
	case suggest.KindAuthor:
		return search.FieldAuthor
	case suggest.KindCode:
		return search.FieldISBN
	default:
		return search.FieldAll
	}
}
