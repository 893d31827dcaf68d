package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bastiangx/bookserve/pkg/catalog"
	"github.com/bastiangx/bookserve/pkg/reserve"
	"github.com/bastiangx/bookserve/pkg/search"
	"github.com/bastiangx/bookserve/pkg/session"
	"github.com/bastiangx/bookserve/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

// stepClock holds scheduled callbacks until step is called.
type stepClock struct {
	mu  sync.Mutex
	fns []func()
}

func (c *stepClock) schedule(_ time.Duration, fn func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	stopped := false
	c.fns = append(c.fns, func() {
		if !stopped {
			fn()
		}
	})
	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		stopped = true
		return true
	}
}

func (c *stepClock) step() {
	c.mu.Lock()
	fns := c.fns
	c.fns = nil
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func newTestHandler(t *testing.T) (*InputHandler, *stepClock, *bytes.Buffer) {
	t.Helper()
	entries := []*catalog.Entry{
		{ID: "b1", Title: "Dune", Author: "Frank Herbert", Code: "9780441013593", Status: catalog.StatusAvailable, Copies: 1},
		{ID: "b2", Title: "Dune Messiah", Author: "Frank Herbert", Code: "9780441172696", Status: catalog.StatusAvailable, Copies: 2},
	}
	for i := 0; i < 12; i++ {
		entries = append(entries, &catalog.Entry{ID: "v" + string(rune('a'+i)), Title: "Volume " + string(rune('A'+i)), Author: "Anonymous"})
	}
	store := catalog.NewStore(&catalog.StaticSource{Name: "test", Entries: entries})
	require.NoError(t, store.Refresh(context.Background()))

	idx, err := search.NewIndex(store.Current(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	clock := &stepClock{}
	out := &bytes.Buffer{}
	h := NewInputHandler(Config{
		Engine:     suggest.NewEngine(suggest.DefaultOptions()),
		Store:      store,
		Searcher:   idx,
		Reserver:   reserve.NewLedger(store, reserve.DefaultPolicy()),
		Patron:     reserve.Patron{ID: "tester"},
		Session:    session.Options{Scheduler: clock.schedule, PageSize: 5},
		PageWindow: 3,
	}).WithIO(strings.NewReader(""), out)
	t.Cleanup(h.Session().Close)
	return h, clock, out
}

func TestRenderDropdown(t *testing.T) {
	e := &catalog.Entry{ID: "b1", Title: "Dune", Author: "Frank Herbert"}
	v := session.View{
		Open:   true,
		Cursor: 1,
		Candidates: []suggest.Candidate{
			{Kind: suggest.KindTitle, Text: "Dune", Entry: e},
			{Kind: suggest.KindAuthor, Text: "Frank Herbert", Entry: e},
		},
	}
	out := RenderDropdown(v)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "TITLE")
	assert.Contains(t, lines[0], "Dune")
	assert.NotContains(t, lines[0], ">")
	assert.Contains(t, lines[1], "> ")
	assert.Contains(t, lines[1], "AUTHOR")
	assert.Contains(t, lines[1], "(Dune)")

	v.Open = false
	assert.Empty(t, RenderDropdown(v))

	assert.Contains(t, RenderDropdown(session.View{NoMatches: true, Query: "zzz"}), `No matches for "zzz"`)
}

func TestRenderPage(t *testing.T) {
	entries := []*catalog.Entry{
		{ID: "1", Title: strings.Repeat("Long Title ", 10), Author: "Someone", Code: "123", Status: catalog.StatusAvailable, Copies: 3},
		{ID: "2", Title: "Short", Author: "Other", Status: catalog.StatusLost},
	}
	p := search.NewPage(search.Request{Field: search.FieldTitle, Text: "t", Page: 2, PageSize: 2}, entries, 9)
	out := RenderPage(p, 3)

	assert.Contains(t, out, `Showing 3-4 of 9 results for "t" in title`)
	assert.Contains(t, out, "…")
	assert.Contains(t, out, "Available (3)")
	assert.Contains(t, out, "Lost")
	assert.Contains(t, out, "< prev 1 [2] 3 next >")

	empty := search.NewPage(search.Request{Text: "zzz", Page: 1, PageSize: 10}, nil, 0)
	assert.Contains(t, RenderPage(empty, 3), `No results for "zzz"`)

	single := search.NewPage(search.Request{Page: 1, PageSize: 10}, entries, 2)
	assert.Contains(t, RenderPageStrip(single, 3), "Page 1 of 1")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Dune", truncate("Dune", 10))
	assert.Equal(t, "Du…", truncate("Dune", 3))
	assert.Equal(t, "Mis…", truncate("Misérables", 4))
}

func TestHandlerTypingShowsDropdown(t *testing.T) {
	h, clock, out := newTestHandler(t)
	ctx := context.Background()

	h.handleLine(ctx, "du")
	h.handleLine(ctx, "dun")
	assert.Empty(t, out.String())

	clock.step()
	assert.Contains(t, out.String(), "Dune Messiah")

	out.Reset()
	h.handleLine(ctx, ":down")
	h.handleLine(ctx, ":down")
	assert.Equal(t, 1, h.Session().View().Cursor)
	assert.Contains(t, out.String(), "> ")

	h.handleLine(ctx, ":esc")
	assert.Empty(t, h.Session().View().Candidates)
}

func TestHandlerEnterAndPaging(t *testing.T) {
	h, clock, out := newTestHandler(t)
	ctx := context.Background()

	h.handleLine(ctx, "anonymous")
	clock.step()
	out.Reset()

	h.handleLine(ctx, ":enter")
	require.NotNil(t, h.page)
	assert.Equal(t, 12, h.page.Total)
	assert.Equal(t, 3, h.page.TotalPages)
	assert.Contains(t, out.String(), "Showing 1-5 of 12")

	h.handleLine(ctx, ":next")
	assert.Equal(t, 2, h.page.Page)
	h.handleLine(ctx, ":page 9")
	assert.Equal(t, 3, h.page.Page)
	assert.Contains(t, out.String(), "Showing 11-12 of 12")
	h.handleLine(ctx, ":prev")
	assert.Equal(t, 2, h.page.Page)

	out.Reset()
	h.handleLine(ctx, ":page x")
	assert.Contains(t, out.String(), "not a page number")
}

func TestHandlerEnterCommitsHighlighted(t *testing.T) {
	h, clock, out := newTestHandler(t)
	ctx := context.Background()

	h.handleLine(ctx, "herb")
	clock.step()
	h.handleLine(ctx, ":down")
	h.handleLine(ctx, ":enter")

	require.NotNil(t, h.page)
	assert.Equal(t, search.FieldAuthor, h.page.Request.Field)
	assert.Equal(t, "Frank Herbert", h.page.Request.Text)
	assert.Equal(t, 2, h.page.Total)
	assert.Contains(t, out.String(), "in author")
	assert.Equal(t, "Frank Herbert", h.Session().View().Query)
}

func TestHandlerReserveRefreshQuit(t *testing.T) {
	h, _, out := newTestHandler(t)
	ctx := context.Background()

	h.handleLine(ctx, ":reserve 9780441013593")
	assert.Contains(t, out.String(), "Reservation confirmed.")

	out.Reset()
	h.handleLine(ctx, ":reserve b1")
	assert.Contains(t, out.String(), "You have already reserved this book.")

	out.Reset()
	h.handleLine(ctx, ":refresh")
	assert.Contains(t, out.String(), "Catalog reloaded: 14 entries from test")

	out.Reset()
	h.handleLine(ctx, ":next")
	assert.Contains(t, out.String(), "no search yet")

	out.Reset()
	h.handleLine(ctx, ":bogus")
	assert.Contains(t, out.String(), "unknown command :bogus")

	assert.True(t, h.handleLine(ctx, ":quit"))
}

func TestHandlerStartStopsOnQuit(t *testing.T) {
	h, _, out := newTestHandler(t)
	h.WithIO(strings.NewReader(":help\n:quit\ndune\n"), out)
	require.NoError(t, h.Start(context.Background()))
	assert.Contains(t, out.String(), "BookServe CLI")
	assert.Contains(t, out.String(), ":reserve REF")
	assert.Equal(t, session.StateIdle, h.Session().View().State)
}
