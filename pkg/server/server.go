package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bastiangx/bookserve/internal/logger"
	"github.com/bastiangx/bookserve/internal/utils"
	"github.com/bastiangx/bookserve/pkg/catalog"
	"github.com/bastiangx/bookserve/pkg/config"
	"github.com/bastiangx/bookserve/pkg/reserve"
	"github.com/bastiangx/bookserve/pkg/search"
	"github.com/bastiangx/bookserve/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

const defaultOpTimeout = 5 * time.Second

// Server answers msgpack requests read from an input stream.
type Server struct {
	engine     *suggest.Engine
	store      *catalog.Store
	searcher   search.Searcher
	reserver   reserve.Reserver
	config     *config.Config
	configPath string
	timeout    time.Duration

	dec *msgpack.Decoder
	out *bufio.Writer
	enc *msgpack.Encoder
	log *log.Logger

	requestCount int
}

// NewServer creates a server on stdin/stdout. configPath may be empty, which
// disables config reloading.
func NewServer(engine *suggest.Engine, store *catalog.Store, searcher search.Searcher, reserver reserve.Reserver, cfg *config.Config, configPath string) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		engine:     engine,
		store:      store,
		searcher:   searcher,
		reserver:   reserver,
		config:     cfg,
		configPath: configPath,
		timeout:    defaultOpTimeout,
		log:        logger.New("server"),
	}
	return s.WithIO(os.Stdin, os.Stdout)
}

// WithIO replaces the streams the server reads from and writes to.
func (s *Server) WithIO(r io.Reader, w io.Writer) *Server {
	s.dec = msgpack.NewDecoder(bufio.NewReader(r))
	s.out = bufio.NewWriter(w)
	s.enc = msgpack.NewEncoder(s.out)
	return s
}

// SetTimeout bounds how long a single search, reservation or refresh may take.
func (s *Server) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// Start serves requests until the input ends or ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.log.Debug("Starting server")
	if err := s.send(StatusResponse{Status: "ready"}); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		raw, err := s.dec.DecodeRaw()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.log.Debug("Input closed, stopping server")
				return nil
			}
			s.log.Errorf("Reading request: %v", err)
			_ = s.sendError("", "Malformed request stream", CodeBadRequest)
			return fmt.Errorf("read request: %w", err)
		}

		var req Request
		if err := msgpack.Unmarshal(raw, &req); err != nil {
			s.log.Warnf("Decoding request: %v", err)
			if err := s.sendError("", "Invalid request", CodeBadRequest); err != nil {
				return err
			}
			continue
		}
		if req.ID == "" {
			req.ID = uuid.New().String()
		}

		if err := s.handleRequest(ctx, req); err != nil {
			return err
		}
		s.countRequest()
	}
}

// handleRequest dispatches on the op. Only write failures are returned; op
// failures are reported to the client.
func (s *Server) handleRequest(ctx context.Context, req Request) error {
	switch req.Op {
	case OpSuggest, "":
		return s.handleSuggest(req)
	case OpSearch:
		return s.handleSearch(ctx, req)
	case OpReserve:
		return s.handleReserve(ctx, req)
	case OpRefresh:
		return s.handleRefresh(ctx, req)
	case OpStats:
		return s.send(StatsResponse{
			ID:       req.ID,
			Engine:   s.engine.Stats(),
			Catalog:  s.catalogInfo(req.ID),
			Requests: s.requestCount,
		})
	case OpHealth:
		return s.send(StatusResponse{ID: req.ID, Status: "ok"})
	default:
		return s.sendError(req.ID, fmt.Sprintf("Unknown op: %s", req.Op), CodeBadRequest)
	}
}

func (s *Server) handleSuggest(req Request) error {
	if req.Query == "" {
		s.log.Debug("Query is empty in request")
		return s.send(SuggestResponse{ID: req.ID, Suggestions: []Suggestion{}})
	}

	start := time.Now()
	candidates := s.engine.Suggest(s.store.Current().Entries(), req.Query)
	if req.Limit > 0 && len(candidates) > req.Limit {
		candidates = candidates[:req.Limit]
	}
	elapsed := time.Since(start)

	ranks := utils.CreateRankList(len(candidates))
	suggestions := make([]Suggestion, len(candidates))
	for i, c := range candidates {
		suggestions[i] = Suggestion{
			Kind:      c.Kind.Label(),
			Text:      c.Text,
			EntryID:   c.Entry.ID,
			Secondary: c.Secondary(),
			Rank:      ranks[i],
		}
	}

	return s.send(SuggestResponse{
		ID:          req.ID,
		Suggestions: suggestions,
		Count:       len(suggestions),
		TimeTaken:   elapsed.Microseconds(),
	})
}

func (s *Server) handleSearch(ctx context.Context, req Request) error {
	field, err := search.ParseField(req.Field)
	if err != nil {
		return s.sendError(req.ID, err.Error(), CodeBadRequest)
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = s.config.Search.PageSize
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	page, err := s.searcher.Search(ctx, search.Request{
		Field:    field,
		Text:     req.Query,
		Page:     req.Page,
		PageSize: pageSize,
	})
	if err != nil {
		s.log.Warnf("Search %q failed: %v", req.Query, err)
		return s.sendError(req.ID, searchMessage(err), searchCode(err))
	}

	return s.send(SearchResponse{
		ID:         req.ID,
		Entries:    page.Entries,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
		TimeTaken:  time.Since(start).Microseconds(),
	})
}

func (s *Server) handleReserve(ctx context.Context, req Request) error {
	if req.Entry == "" {
		return s.sendError(req.ID, "Missing 'e' parameter", CodeBadRequest)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	patron := reserve.Patron{ID: req.PatronID, ActiveReservations: req.Active}
	r, err := s.reserver.Reserve(ctx, patron, req.Entry)
	if err != nil {
		return s.sendError(req.ID, reserve.Message(err), reserveCode(err))
	}
	return s.send(ReserveResponse{ID: req.ID, Reservation: r, Message: reserve.Message(nil)})
}

func (s *Server) handleRefresh(ctx context.Context, req Request) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.Refresh(ctx); err != nil {
		s.log.Errorf("Catalog refresh failed: %v", err)
		return s.sendError(req.ID, "Catalog refresh failed, still serving the previous snapshot", CodeUnavailable)
	}
	return s.send(s.catalogInfo(req.ID))
}

func (s *Server) catalogInfo(id string) CatalogResponse {
	stats := s.store.Stats()
	return CatalogResponse{
		ID:        id,
		Status:    "ok",
		Entries:   stats.Entries,
		Source:    stats.Source,
		LoadedAt:  stats.LastRefresh,
		Refreshes: stats.Refreshes,
		Failures:  stats.Failures,
	}
}

// countRequest bumps the request counter and reloads config when due.
func (s *Server) countRequest() {
	s.requestCount++
	every := s.config.Server.ReloadEvery
	if s.configPath == "" || every <= 0 || s.requestCount%every != 0 {
		return
	}
	cfg, err := config.LoadConfig(s.configPath)
	if err != nil {
		s.log.Warnf("Config reload from %s failed: %v", s.configPath, err)
		return
	}
	s.config = cfg
	s.engine.SetOptions(suggest.Options{MinQueryLen: cfg.Suggest.MinQuery, Limit: cfg.Suggest.Limit})
	s.log.Debugf("Reloaded config after %d requests", s.requestCount)
}

func (s *Server) send(v any) error {
	if err := s.enc.Encode(v); err != nil {
		s.log.Errorf("Encoding response: %v", err)
		return fmt.Errorf("write response: %w", err)
	}
	if err := s.out.Flush(); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

func (s *Server) sendError(id, message string, code int) error {
	return s.send(ErrorResponse{ID: id, Error: message, Code: code})
}

func searchMessage(err error) string {
	switch {
	case errors.Is(err, search.ErrQueryTooLong):
		return "Search text is too long"
	case errors.Is(err, search.ErrUnknownField):
		return "Unknown search field"
	case errors.Is(err, context.DeadlineExceeded):
		return "The search timed out. Please try again."
	default:
		return "Search failed. Please try again later."
	}
}

func searchCode(err error) int {
	switch {
	case errors.Is(err, search.ErrQueryTooLong), errors.Is(err, search.ErrUnknownField):
		return CodeBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, search.ErrIndexClosed):
		return CodeUnavailable
	default:
		return CodeInternal
	}
}

func reserveCode(err error) int {
	switch {
	case errors.Is(err, reserve.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, reserve.ErrNoPatron):
		return CodeBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, reserve.ErrUnavailable),
		errors.Is(err, reserve.ErrNoCopies),
		errors.Is(err, reserve.ErrLimitReached),
		errors.Is(err, reserve.ErrPatronBlocked),
		errors.Is(err, reserve.ErrAlreadyReserved):
		return CodeConflict
	default:
		return CodeInternal
	}
}
