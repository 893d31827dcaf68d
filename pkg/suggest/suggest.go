package suggest

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bastiangx/bookserve/internal/utils"
	"github.com/bastiangx/bookserve/pkg/catalog"
	"github.com/charmbracelet/log"
)

const (
	// DefaultMinQueryLen is the shortest query that produces candidates.
	DefaultMinQueryLen = 2
	// DefaultLimit caps the number of candidates returned.
	DefaultLimit = 8
)

// Options tune an Engine.
type Options struct {
	MinQueryLen int
	Limit       int
}

// DefaultOptions returns the stock thresholds.
func DefaultOptions() Options {
	return Options{MinQueryLen: DefaultMinQueryLen, Limit: DefaultLimit}
}

// Suggest computes candidates with the default options. It is a pure
// function: the same entries and query always give the same result.
func Suggest(entries []*catalog.Entry, query string) []Candidate {
	return suggest(entries, query, DefaultOptions())
}

// Engine computes candidates with configured options and keeps counters.
type Engine struct {
	opts     Options
	mu       sync.Mutex
	calls    int
	empty    int
	lastTook time.Duration
}

// NewEngine creates an engine. Non-positive option values fall back to the
// defaults.
func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts.withDefaults()}
}

func (o Options) withDefaults() Options {
	if o.MinQueryLen <= 0 {
		o.MinQueryLen = DefaultMinQueryLen
	}
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	return o
}

// Options returns the active options.
func (e *Engine) Options() Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts
}

// SetOptions replaces the options used by later calls, e.g. after a config
// reload.
func (e *Engine) SetOptions(opts Options) {
	e.mu.Lock()
	e.opts = opts.withDefaults()
	e.mu.Unlock()
}

// Suggest returns ranked candidates for query over entries.
func (e *Engine) Suggest(entries []*catalog.Entry, query string) []Candidate {
	opts := e.Options()
	start := time.Now()
	out := suggest(entries, query, opts)
	took := time.Since(start)

	e.mu.Lock()
	e.calls++
	if len(out) == 0 {
		e.empty++
	}
	e.lastTook = took
	e.mu.Unlock()

	log.Debugf("Suggest %q over %d entries: %d candidates in %v", query, len(entries), len(out), took)
	return out
}

// Stats returns counters about the engine.
func (e *Engine) Stats() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return map[string]int{
		"calls":        e.calls,
		"emptyResults": e.empty,
		"lastMicros":   int(e.lastTook.Microseconds()),
		"minQueryLen":  e.opts.MinQueryLen,
		"limit":        e.opts.Limit,
	}
}

// ranked pairs a candidate with its precomputed sort keys.
type ranked struct {
	Candidate
	starts bool
	length int
}

func suggest(entries []*catalog.Entry, query string, opts Options) []Candidate {
	if utils.CharLen(query) < opts.MinQueryLen || len(entries) == 0 {
		return []Candidate{}
	}

	folded := utils.Fold(query)
	// one registry for all kinds, keyed by the literal (folded) text
	seen := utils.NewSeenFilter()
	var found []ranked

	emit := func(kind Kind, text, key, match, q string, e *catalog.Entry) {
		if !strings.Contains(match, q) || !seen.Add(key) {
			return
		}
		found = append(found, ranked{
			Candidate: Candidate{Kind: kind, Text: text, Entry: e},
			starts:    strings.HasPrefix(match, q),
			length:    utils.CharLen(text),
		})
	}

	for _, e := range entries {
		if e == nil {
			continue
		}
		title := utils.Fold(e.Title)
		emit(KindTitle, e.Title, title, title, folded, e)

		author := utils.Fold(e.Author)
		emit(KindAuthor, e.Author, author, author, folded, e)

		if e.HasCode() {
			emit(KindCode, e.Code, e.Code, e.Code, query, e)
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].starts != found[j].starts {
			return found[i].starts
		}
		return found[i].length < found[j].length
	})

	if len(found) > opts.Limit {
		found = found[:opts.Limit]
	}

	out := make([]Candidate, len(found))
	for i, r := range found {
		out[i] = r.Candidate
	}
	return out
}
