package server

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bastiangx/bookserve/pkg/catalog"
	"github.com/bastiangx/bookserve/pkg/config"
	"github.com/bastiangx/bookserve/pkg/reserve"
	"github.com/bastiangx/bookserve/pkg/search"
	"github.com/bastiangx/bookserve/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

type fixture struct {
	server *Server
	in     *bytes.Buffer
	out    *bytes.Buffer
	store  *catalog.Store
	src    *catalog.StaticSource
}

func newFixture(t *testing.T, cfg *config.Config, configPath string) *fixture {
	t.Helper()
	src := &catalog.StaticSource{Name: "test", Entries: []*catalog.Entry{
		{ID: "b1", Title: "Dune", Author: "Frank Herbert", Code: "9780441013593", Status: catalog.StatusAvailable, Copies: 1},
		{ID: "b2", Title: "Dune Messiah", Author: "Frank Herbert", Code: "9780441172696", Status: catalog.StatusAvailable, Copies: 1},
		{ID: "b3", Title: "Neuromancer", Author: "William Gibson", Code: "9780441569595", Status: catalog.StatusCheckedOut},
	}}
	store := catalog.NewStore(src)
	require.NoError(t, store.Refresh(context.Background()))

	idx, err := search.NewIndex(store.Current(), 64)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	store.OnRefresh(func(s *catalog.Snapshot) {
		require.NoError(t, idx.Rebuild(s))
	})

	f := &fixture{in: &bytes.Buffer{}, out: &bytes.Buffer{}, store: store, src: src}
	engine := suggest.NewEngine(suggest.DefaultOptions())
	ledger := reserve.NewLedger(store, reserve.DefaultPolicy())
	f.server = NewServer(engine, store, idx, ledger, cfg, configPath).WithIO(f.in, f.out)
	return f
}

func (f *fixture) send(t *testing.T, reqs ...Request) {
	t.Helper()
	enc := msgpack.NewEncoder(f.in)
	for _, r := range reqs {
		require.NoError(t, enc.Encode(r))
	}
}

func (f *fixture) run(t *testing.T) *msgpack.Decoder {
	t.Helper()
	require.NoError(t, f.server.Start(context.Background()))
	dec := msgpack.NewDecoder(f.out)

	var ready StatusResponse
	require.NoError(t, dec.Decode(&ready))
	require.Equal(t, "ready", ready.Status)
	return dec
}

func TestServerSuggest(t *testing.T) {
	f := newFixture(t, nil, "")
	f.send(t,
		Request{ID: "1", Query: "dun"},
		Request{ID: "2", Op: OpSuggest, Query: "herb", Limit: 1},
		Request{ID: "3", Op: OpSuggest, Query: "d"},
		Request{ID: "4", Op: OpSuggest},
	)
	dec := f.run(t)

	var res SuggestResponse
	require.NoError(t, dec.Decode(&res))
	assert.Equal(t, "1", res.ID)
	require.Equal(t, 2, res.Count)
	assert.Equal(t, Suggestion{Kind: "TITLE", Text: "Dune", EntryID: "b1", Rank: 1}, res.Suggestions[0])
	assert.Equal(t, "Dune Messiah", res.Suggestions[1].Text)
	assert.Equal(t, uint16(2), res.Suggestions[1].Rank)

	var limited SuggestResponse
	require.NoError(t, dec.Decode(&limited))
	assert.Equal(t, "2", limited.ID)
	require.Equal(t, 1, limited.Count)
	assert.Equal(t, "AUTHOR", limited.Suggestions[0].Kind)
	assert.Equal(t, "Frank Herbert", limited.Suggestions[0].Text)
	assert.Equal(t, "Dune", limited.Suggestions[0].Secondary)

	var short SuggestResponse
	require.NoError(t, dec.Decode(&short))
	assert.Equal(t, "3", short.ID)
	assert.Zero(t, short.Count)
	assert.Empty(t, short.Suggestions)

	// an empty query is not an error
	var empty SuggestResponse
	require.NoError(t, dec.Decode(&empty))
	assert.Equal(t, "4", empty.ID)
	assert.Zero(t, empty.Count)
	assert.Empty(t, empty.Suggestions)
}

func TestServerSearch(t *testing.T) {
	f := newFixture(t, nil, "")
	f.send(t,
		Request{ID: "1", Op: OpSearch, Field: "author", Query: "herbert", PageSize: 1, Page: 2},
		Request{ID: "2", Op: OpSearch, Field: "publisher", Query: "ace"},
	)
	dec := f.run(t)

	var page SearchResponse
	require.NoError(t, dec.Decode(&page))
	assert.Equal(t, "1", page.ID)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "Frank Herbert", page.Entries[0].Author)

	var errRes ErrorResponse
	require.NoError(t, dec.Decode(&errRes))
	assert.Equal(t, "2", errRes.ID)
	assert.Equal(t, CodeBadRequest, errRes.Code)
}

func TestServerReserve(t *testing.T) {
	f := newFixture(t, nil, "")
	f.send(t,
		Request{ID: "1", Op: OpReserve, PatronID: "alice", Entry: "9780441013593"},
		Request{ID: "2", Op: OpReserve, PatronID: "bob", Entry: "b1"},
		Request{ID: "3", Op: OpReserve, PatronID: "bob", Entry: "b3"},
		Request{ID: "4", Op: OpReserve, PatronID: "bob", Entry: "nope"},
		Request{ID: "5", Op: OpReserve, Entry: "b2"},
	)
	dec := f.run(t)

	var ok ReserveResponse
	require.NoError(t, dec.Decode(&ok))
	assert.Equal(t, "1", ok.ID)
	require.NotNil(t, ok.Reservation)
	assert.Equal(t, "b1", ok.Reservation.EntryID)
	assert.Equal(t, "Reservation confirmed.", ok.Message)

	expected := []ErrorResponse{
		{ID: "2", Error: "All copies of this book are currently taken.", Code: CodeConflict},
		{ID: "3", Error: "This book is not available for reservation right now.", Code: CodeConflict},
		{ID: "4", Error: "This book could not be found in the catalog.", Code: CodeNotFound},
		{ID: "5", Error: "Please sign in to reserve books.", Code: CodeBadRequest},
	}
	for _, want := range expected {
		var got ErrorResponse
		require.NoError(t, dec.Decode(&got))
		assert.Equal(t, want, got)
	}
}

func TestServerRefreshStatsHealth(t *testing.T) {
	f := newFixture(t, nil, "")
	f.src.Entries = append(f.src.Entries, &catalog.Entry{ID: "b4", Title: "Hyperion", Author: "Dan Simmons"})
	f.send(t,
		Request{ID: "1", Op: OpRefresh},
		Request{ID: "2", Op: OpSearch, Field: "title", Query: "hyperion"},
		Request{ID: "3", Op: OpStats},
		Request{ID: "4", Op: OpHealth},
		Request{ID: "5", Op: "explode"},
	)
	dec := f.run(t)

	var info CatalogResponse
	require.NoError(t, dec.Decode(&info))
	assert.Equal(t, 4, info.Entries)
	assert.Equal(t, 2, info.Refreshes)
	assert.Equal(t, "test", info.Source)

	var page SearchResponse
	require.NoError(t, dec.Decode(&page))
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "b4", page.Entries[0].ID)

	var stats StatsResponse
	require.NoError(t, dec.Decode(&stats))
	assert.Equal(t, 2, stats.Requests)
	assert.Equal(t, 4, stats.Catalog.Entries)
	assert.Equal(t, suggest.DefaultLimit, stats.Engine["limit"])

	var health StatusResponse
	require.NoError(t, dec.Decode(&health))
	assert.Equal(t, StatusResponse{ID: "4", Status: "ok"}, health)

	var unknown ErrorResponse
	require.NoError(t, dec.Decode(&unknown))
	assert.Equal(t, CodeBadRequest, unknown.Code)
	assert.Contains(t, unknown.Error, "explode")
}

func TestServerInvalidRequest(t *testing.T) {
	f := newFixture(t, nil, "")
	raw, err := msgpack.Marshal([]int{1, 2, 3})
	require.NoError(t, err)
	f.in.Write(raw)
	f.send(t, Request{Op: OpHealth})
	dec := f.run(t)

	var errRes ErrorResponse
	require.NoError(t, dec.Decode(&errRes))
	assert.Equal(t, CodeBadRequest, errRes.Code)

	// missing ids are filled in
	var health StatusResponse
	require.NoError(t, dec.Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.NotEmpty(t, health.ID)
}

func TestServerReloadsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[suggest]\nlimit = 1\n\n[server]\nreload_every = 2\n"), 0644))

	cfg := config.DefaultConfig()
	cfg.Server.ReloadEvery = 2
	f := newFixture(t, cfg, path)
	f.send(t,
		Request{ID: "1", Query: "dun"},
		Request{ID: "2", Op: OpHealth},
		Request{ID: "3", Query: "dun"},
	)
	dec := f.run(t)

	var res SuggestResponse
	require.NoError(t, dec.Decode(&res))
	assert.Equal(t, 2, res.Count)

	var health StatusResponse
	require.NoError(t, dec.Decode(&health))

	var after SuggestResponse
	require.NoError(t, dec.Decode(&after))
	assert.Equal(t, "3", after.ID)
	assert.Equal(t, 1, after.Count)
}
