/*
Package server implements msgpack IPC for the catalog search client.

Clients write msgpack encoded requests to stdin and read one msgpack encoded
response per request from stdout. Logs go to stderr so the stream stays clean.
On start the server writes a status message:

	{"id": "", "status": "ready"}

# IPC

Every request carries an ID, echoed in the response, and an operation. When
op is omitted the request is a suggestion request:

	{"id": "req_001", "q": "dun"}

The response lists candidates in display order, each with its kind label,
text, entry id, secondary text and 1-based rank. A missing or too short q
gets an empty list:

	{"id": "req_001", "s": [{"k": "TITLE", "t": "Dune", "e": "b1", "r": 1}], "c": 1, "t": 38}

Searches are paginated, pages being 1-based:

	{"id": "req_002", "op": "search", "f": "author", "q": "herbert", "pg": 2, "ps": 10}

Reservations take a patron id and an entry id or ISBN:

	{"id": "req_003", "op": "reserve", "pid": "patron-7", "e": "9780441013593"}

The refresh, stats and health ops take no arguments.

A failed op answers with an error response carrying a message meant for the
user and an HTTP-like status code:

	{"id": "req_003", "e": "All copies of this book are currently taken.", "c": 409}

# Message Types

SuggestResponse, SearchResponse and ReserveResponse answer the three main
ops. CatalogResponse reports the snapshot after a refresh, StatsResponse
exposes engine and catalog counters, StatusResponse answers health checks.

The server counts requests and reloads its TOML config every
server.reload_every requests.
*/
package server

import (
	"time"

	"github.com/bastiangx/bookserve/pkg/catalog"
	"github.com/bastiangx/bookserve/pkg/reserve"
)

// Operations understood by the server.
const (
	OpSuggest = "suggest"
	OpSearch  = "search"
	OpReserve = "reserve"
	OpRefresh = "refresh"
	OpStats   = "stats"
	OpHealth  = "health"
)

// Status codes used in ErrorResponse.
const (
	CodeBadRequest  = 400
	CodeNotFound    = 404
	CodeConflict    = 409
	CodeTimeout     = 408
	CodeInternal    = 500
	CodeUnavailable = 503
)

// Request is the envelope for every op. Only the fields of the op are set.
type Request struct {
	ID    string `msgpack:"id"`
	Op    string `msgpack:"op,omitempty"`
	Query string `msgpack:"q,omitempty"`
	Limit int    `msgpack:"l,omitempty"`

	// search
	Field    string `msgpack:"f,omitempty"`
	Page     int    `msgpack:"pg,omitempty"`
	PageSize int    `msgpack:"ps,omitempty"`

	// reserve
	PatronID string `msgpack:"pid,omitempty"`
	Active   int    `msgpack:"pa,omitempty"`
	Entry    string `msgpack:"e,omitempty"`
}

// Suggestion is one candidate in a SuggestResponse.
type Suggestion struct {
	Kind      string `msgpack:"k"`
	Text      string `msgpack:"t"`
	EntryID   string `msgpack:"e"`
	Secondary string `msgpack:"x,omitempty"`
	Rank      uint16 `msgpack:"r"`
}

// SuggestResponse answers a suggest request.
type SuggestResponse struct {
	ID          string       `msgpack:"id"`
	Suggestions []Suggestion `msgpack:"s"`
	Count       int          `msgpack:"c"`
	TimeTaken   int64        `msgpack:"t"`
}

// SearchResponse is one page of search results.
type SearchResponse struct {
	ID         string           `msgpack:"id"`
	Entries    []*catalog.Entry `msgpack:"r"`
	Total      int              `msgpack:"n"`
	Page       int              `msgpack:"pg"`
	PageSize   int              `msgpack:"ps"`
	TotalPages int              `msgpack:"tp"`
	TimeTaken  int64            `msgpack:"t"`
}

// ReserveResponse confirms a reservation.
type ReserveResponse struct {
	ID          string               `msgpack:"id"`
	Reservation *reserve.Reservation `msgpack:"r"`
	Message     string               `msgpack:"m"`
}

// CatalogResponse describes the active snapshot.
type CatalogResponse struct {
	ID        string    `msgpack:"id"`
	Status    string    `msgpack:"status"`
	Entries   int       `msgpack:"entries"`
	Source    string    `msgpack:"source"`
	LoadedAt  time.Time `msgpack:"loaded_at"`
	Refreshes int       `msgpack:"refreshes"`
	Failures  int       `msgpack:"failures"`
}

// StatsResponse exposes counters.
type StatsResponse struct {
	ID       string          `msgpack:"id"`
	Engine   map[string]int  `msgpack:"engine"`
	Catalog  CatalogResponse `msgpack:"catalog"`
	Requests int             `msgpack:"requests"`
}

// StatusResponse is the ready and health message.
type StatusResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"status"`
}

// ErrorResponse holds basic error information for a failed op
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
