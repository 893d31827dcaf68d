// Package cli is an interactive terminal front end for the search box, used
// for testing and debugging the session state machine by hand.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/bastiangx/bookserve/pkg/catalog"
	"github.com/bastiangx/bookserve/pkg/reserve"
	"github.com/bastiangx/bookserve/pkg/search"
	"github.com/bastiangx/bookserve/pkg/session"
	"github.com/charmbracelet/log"
)

const helpText = `type text to search, or a command:
  :down :up        move the highlight
  :enter           search for the highlighted candidate or the typed text
  :esc             close the suggestions
  :focus :blur     reopen or collapse the suggestions
  :page N :next :prev
  :reserve REF     reserve by entry id or ISBN
  :refresh         reload the catalog
  :quit`

// Config wires the collaborators of an InputHandler.
type Config struct {
	Engine     session.Suggester
	Store      *catalog.Store
	Searcher   search.Searcher
	Reserver   reserve.Reserver
	Patron     reserve.Patron
	Session    session.Options
	PageWindow int
}

// InputHandler reads lines from the terminal and drives a search session.
// Plain lines become the search box text; lines starting with ':' are
// commands.
type InputHandler struct {
	cfg     Config
	session *session.Session
	in      io.Reader

	outMu sync.Mutex
	out   io.Writer

	page         *search.Page
	requestCount int
}

// NewInputHandler creates a handler on stdin/stdout.
func NewInputHandler(cfg Config) *InputHandler {
	if cfg.PageWindow < 1 {
		cfg.PageWindow = 5
	}
	h := &InputHandler{cfg: cfg, in: os.Stdin, out: os.Stdout}

	opts := cfg.Session
	userSettle := opts.OnSettle
	opts.OnSettle = func(v session.View) {
		if userSettle != nil {
			userSettle(v)
		}
		if out := RenderDropdown(v); out != "" {
			h.println(out)
		}
	}
	h.session = session.New(cfg.Engine, cfg.Store, opts)
	return h
}

// WithIO replaces the terminal streams.
func (h *InputHandler) WithIO(in io.Reader, out io.Writer) *InputHandler {
	h.in = in
	h.out = out
	return h
}

// Session exposes the underlying session.
func (h *InputHandler) Session() *session.Session {
	return h.session
}

// Start runs the loop until :quit, end of input or ctx is cancelled.
func (h *InputHandler) Start(ctx context.Context) error {
	defer h.session.Close()

	h.println(headerStyle.Render("BookServe CLI [BETA]"))
	h.println(mutedStyle.Render("type to search, :help for commands (Ctrl+C to exit)"))

	scanner := bufio.NewScanner(h.in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		if quit := h.handleLine(ctx, scanner.Text()); quit {
			return nil
		}
	}
	return scanner.Err()
}

// handleLine processes one input line and reports whether the loop should
// stop.
func (h *InputHandler) handleLine(ctx context.Context, line string) bool {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return false
	}
	h.requestCount++

	if !strings.HasPrefix(line, ":") {
		log.Debug("Input", "query", line)
		h.session.Input(line)
		return false
	}

	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case ":quit", ":q":
		return true
	case ":help", ":h":
		h.println(helpText)
	case ":down", ":j":
		h.session.Key(session.KeyDown)
		h.showDropdown()
	case ":up", ":k":
		h.session.Key(session.KeyUp)
		h.showDropdown()
	case ":esc":
		h.session.Key(session.KeyEscape)
	case ":enter":
		if req, ok := h.session.Key(session.KeyEnter); ok {
			h.runSearch(ctx, req)
		}
	case ":focus":
		h.session.Focus()
		h.showDropdown()
	case ":blur":
		h.session.ClickOutside()
	case ":next":
		h.turnPage(ctx, func(p *search.Page) int { return p.Page + 1 })
	case ":prev":
		h.turnPage(ctx, func(p *search.Page) int { return p.Page - 1 })
	case ":page":
		if len(args) != 1 {
			h.println(RenderResult("usage: :page N", false))
			break
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			h.println(RenderResult(fmt.Sprintf("not a page number: %s", args[0]), false))
			break
		}
		h.turnPage(ctx, func(*search.Page) int { return n })
	case ":reserve":
		if len(args) != 1 {
			h.println(RenderResult("usage: :reserve <id|isbn>", false))
			break
		}
		h.reserve(ctx, args[0])
	case ":refresh":
		h.refresh(ctx)
	default:
		h.println(RenderResult(fmt.Sprintf("unknown command %s, try :help", cmd), false))
	}
	return false
}

func (h *InputHandler) showDropdown() {
	if out := RenderDropdown(h.session.View()); out != "" {
		h.println(out)
	}
}

func (h *InputHandler) runSearch(ctx context.Context, req search.Request) {
	if h.cfg.Searcher == nil {
		h.println(RenderResult("search is not available", false))
		return
	}
	page, err := h.cfg.Searcher.Search(ctx, req)
	if err != nil {
		log.Debugf("Search failed: %v", err)
		h.println(RenderResult(fmt.Sprintf("Search failed: %v", err), false))
		return
	}
	h.page = page
	h.println(RenderPage(page, h.cfg.PageWindow))
}

func (h *InputHandler) turnPage(ctx context.Context, next func(*search.Page) int) {
	if h.page == nil {
		h.println(RenderResult("no search yet, type a query and :enter", false))
		return
	}
	n := search.ClampPage(next(h.page), h.page.TotalPages)
	if n == h.page.Page {
		h.println(RenderPageStrip(h.page, h.cfg.PageWindow))
		return
	}
	h.runSearch(ctx, h.page.Request.WithPage(n))
}

func (h *InputHandler) reserve(ctx context.Context, ref string) {
	if h.cfg.Reserver == nil {
		h.println(RenderResult("reservations are not available", false))
		return
	}
	r, err := h.cfg.Reserver.Reserve(ctx, h.cfg.Patron, ref)
	if err != nil {
		log.Debugf("Reservation of %s failed: %v", ref, err)
		h.println(RenderResult(reserve.Message(err), false))
		return
	}
	h.println(RenderResult(fmt.Sprintf("%s (%s)", reserve.Message(nil), r.ID), true))
}

func (h *InputHandler) refresh(ctx context.Context) {
	if err := h.cfg.Store.Refresh(ctx); err != nil {
		h.println(RenderResult(fmt.Sprintf("Refresh failed, keeping the previous catalog: %v", err), false))
		return
	}
	stats := h.cfg.Store.Stats()
	h.println(RenderResult(fmt.Sprintf("Catalog reloaded: %d entries from %s", stats.Entries, stats.Source), true))
}

func (h *InputHandler) println(s string) {
	h.outMu.Lock()
	defer h.outMu.Unlock()
	fmt.Fprintln(h.out, s)
}
