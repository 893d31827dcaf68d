package catalog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// StoreStats reports the state of a Store.
type StoreStats struct {
	Entries     int
	Refreshes   int
	Failures    int
	Source      string
	LastRefresh time.Time
}

// Store owns the snapshot used by one search session and swaps it on refresh.
// Readers call Current and never see a partially built snapshot.
type Store struct {
	source    Source
	cachePath string
	current   atomic.Pointer[Snapshot]

	mu        sync.Mutex // serializes refreshes
	refreshes int
	failures  int
	onRefresh []func(*Snapshot)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithCache makes the store write every fresh snapshot to path, and fall back
// to that file when the first fetch fails.
func WithCache(path string) StoreOption {
	return func(s *Store) { s.cachePath = path }
}

// NewStore creates a store backed by source. The store starts empty until
// Refresh is called.
func NewStore(source Source, opts ...StoreOption) *Store {
	s := &Store{source: source}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(EmptySnapshot())
	return s
}

// Current returns the active snapshot. It is never nil.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// OnRefresh registers fn to be called with every newly installed snapshot.
func (s *Store) OnRefresh(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRefresh = append(s.onRefresh, fn)
}

// Refresh fetches a new snapshot from the source and installs it. On failure
// the previous snapshot stays active and the error is returned.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.source.Fetch(ctx)
	if err != nil {
		s.failures++
		if s.refreshes == 0 && s.cachePath != "" {
			if cached, cacheErr := s.loadCache(); cacheErr == nil {
				log.Warnf("Catalog fetch failed (%v), using cached snapshot %s", err, s.cachePath)
				s.install(cached)
				return nil
			}
		}
		return fmt.Errorf("refresh catalog: %w", err)
	}

	s.install(snap)
	if s.cachePath != "" {
		if err := WriteSnapshot(s.cachePath, snap); err != nil {
			log.Warnf("Failed to write snapshot cache %s: %v", s.cachePath, err)
		}
	}
	return nil
}

func (s *Store) install(snap *Snapshot) {
	s.current.Store(snap)
	s.refreshes++
	log.Debugf("Installed catalog snapshot: %d entries from %s", snap.Len(), snap.Source())
	for _, fn := range s.onRefresh {
		fn(snap)
	}
}

func (s *Store) loadCache() (*Snapshot, error) {
	entries, err := ReadFile(s.cachePath)
	if err != nil {
		return nil, err
	}
	return NewSnapshot("cache", entries), nil
}

// Stats returns counters about the store.
func (s *Store) Stats() StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.Current()
	return StoreStats{
		Entries:     snap.Len(),
		Refreshes:   s.refreshes,
		Failures:    s.failures,
		Source:      snap.Source(),
		LastRefresh: snap.LoadedAt(),
	}
}
