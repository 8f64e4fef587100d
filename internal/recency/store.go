// Albumrotor - Rotating Virtual Photo Album Service
// Copyright 2026 P. Kjellman (kjellman)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kjellman/albumrotor

// Package recency persists per-item last-viewed instants in BadgerDB and
// buffers view records in memory between periodic flushes.
//
// The durable state is one JSON document per virtual album, holding the
// last-viewed mapping and the ids of the most recent selection. JSON map
// keys are strings, so numeric item ids round-trip through string
// conversion on load.
//
// Writes are batched: RecordView only buffers, and FlushIfDue persists
// the buffer at most once per flush interval. At most one flush is in
// flight at a time; if the interval elapses while one is still running,
// the new snapshot is dropped with a warning. That loss is a documented
// tradeoff, not a bug to paper over with retries.
package recency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/kjellman/albumrotor/internal/logging"
	"github.com/kjellman/albumrotor/internal/metrics"
)

// DefaultFlushInterval is the minimum time between buffer flushes.
const DefaultFlushInterval = 10 * time.Minute

// stateKeyPrefix namespaces album state documents in the shared Badger
// instance.
const stateKeyPrefix = "virtualalbum:"

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("recency: store is closed")

// storedState is the persisted JSON document.
type storedState struct {
	LastViewed   map[string]float64 `json:"last_viewed"`
	CurrentAlbum []int64            `json:"current_album"`
}

// Store owns the durable last-viewed mapping for one virtual album and
// the in-memory write-behind buffer in front of it. The Store is the
// sole writer of its document; the album session must serialize calls
// that persist state.
type Store struct {
	db            *badger.DB
	key           []byte
	flushInterval time.Duration

	mu        sync.Mutex
	buffer    map[int64]float64
	lastFlush time.Time
	inflight  bool
	closed    bool
	wg        sync.WaitGroup
}

// NewStore creates a store for the virtual album with the given id.
// flushInterval <= 0 selects DefaultFlushInterval.
func NewStore(db *badger.DB, albumID string, flushInterval time.Duration) *Store {
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	return &Store{
		db:            db,
		key:           []byte(stateKeyPrefix + albumID),
		flushInterval: flushInterval,
		buffer:        make(map[int64]float64),
	}
}

// Load reads the durable last-viewed mapping. Returns nil with no error
// if nothing has ever been written.
func (s *Store) Load(ctx context.Context) (map[int64]float64, error) {
	state, err := s.loadState()
	if err != nil {
		return nil, err
	}
	if state == nil || len(state.LastViewed) == 0 {
		return nil, nil
	}

	viewed := make(map[int64]float64, len(state.LastViewed))
	for key, instant := range state.LastViewed {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			// A corrupt key loses one entry, not the whole mapping.
			logging.Warn().Str("key", key).Msg("Skipping unparseable item id in stored state")
			continue
		}
		viewed[id] = instant
	}
	return viewed, nil
}

// LoadSelection reads the persisted ids of the most recent selection.
// Returns nil with no error if nothing has ever been written.
func (s *Store) LoadSelection(ctx context.Context) ([]int64, error) {
	state, err := s.loadState()
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, nil
	}
	return state.CurrentAlbum, nil
}

// Save merges viewed into the durable mapping and persists the merged
// whole. Existing entries for other ids are preserved. Returns
// ErrStoreClosed after Close.
func (s *Store) Save(ctx context.Context, viewed map[int64]float64) error {
	if s.isClosed() {
		return ErrStoreClosed
	}
	return s.saveViewed(viewed)
}

// SaveSelection persists the ids of the current selection, replacing the
// previous selection while preserving the last-viewed mapping. Returns
// ErrStoreClosed after Close.
func (s *Store) SaveSelection(ctx context.Context, ids []int64) error {
	if s.isClosed() {
		return ErrStoreClosed
	}
	return s.mergeState(func(state *storedState) {
		state.CurrentAlbum = ids
	})
}

func (s *Store) saveViewed(viewed map[int64]float64) error {
	return s.mergeState(func(state *storedState) {
		for id, instant := range viewed {
			state.LastViewed[strconv.FormatInt(id, 10)] = instant
		}
	})
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// RecordView buffers a view of the item at the given instant (Unix
// seconds). Nothing is persisted until a flush.
func (s *Store) RecordView(itemID int64, instant float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.buffer[itemID] = instant
	metrics.RecencyBufferSize.Set(float64(len(s.buffer)))
}

// FlushIfDue persists the buffered view records if the flush interval
// has elapsed since the last flush. The write itself runs in the
// background; a persistence failure is logged and counted, and the
// failed snapshot is not restored to the buffer.
//
// If a flush is still in flight when the next one comes due, the current
// buffer is dropped with a warning.
func (s *Store) FlushIfDue(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	// First view after startup only arms the timer; the flush happens
	// once a full interval of activity has passed.
	if s.lastFlush.IsZero() {
		s.lastFlush = now
		return
	}
	if now.Sub(s.lastFlush) <= s.flushInterval || len(s.buffer) == 0 {
		return
	}

	if s.inflight {
		logging.Warn().
			Int("dropped", len(s.buffer)).
			Msg("Previous recency flush still running, dropping buffered view records")
		metrics.RecencyDroppedEntries.Add(float64(len(s.buffer)))
		metrics.RecencyFlushes.WithLabelValues("dropped").Inc()
		s.buffer = make(map[int64]float64)
		metrics.RecencyBufferSize.Set(0)
		return
	}

	snapshot := s.buffer
	s.buffer = make(map[int64]float64)
	s.lastFlush = now
	s.inflight = true
	metrics.RecencyBufferSize.Set(0)

	s.wg.Add(1)
	go s.flush(snapshot)
}

func (s *Store) flush(snapshot map[int64]float64) {
	defer s.wg.Done()

	logging.Info().Int("entries", len(snapshot)).Msg("Writing last-viewed cache")

	if err := s.saveViewed(snapshot); err != nil {
		// The snapshot is gone; whether any of it reached disk is
		// unknown. Documented data-loss risk.
		logging.Err(err).Int("entries", len(snapshot)).Msg("Recency flush failed")
		metrics.RecencyFlushes.WithLabelValues("error").Inc()
	} else {
		metrics.RecencyFlushes.WithLabelValues("success").Inc()
	}

	s.mu.Lock()
	s.inflight = false
	s.mu.Unlock()
}

// Close marks the store closed and joins any in-flight flush. Buffered
// records that never came due are flushed synchronously first so a clean
// shutdown loses nothing.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	snapshot := s.buffer
	s.buffer = make(map[int64]float64)
	s.mu.Unlock()

	s.wg.Wait()

	if len(snapshot) > 0 {
		if err := s.saveViewed(snapshot); err != nil {
			return fmt.Errorf("final recency flush: %w", err)
		}
		metrics.RecencyFlushes.WithLabelValues("success").Inc()
	}
	return nil
}

// loadState reads and decodes the state document, or returns nil if the
// key has never been written.
func (s *Store) loadState() (*storedState, error) {
	var state *storedState

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get state: %w", err)
		}
		return item.Value(func(val []byte) error {
			state = &storedState{}
			return json.Unmarshal(val, state)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load stored state: %w", err)
	}
	return state, nil
}

// mergeState applies update to the current state document inside one
// Badger transaction, read-modify-write.
func (s *Store) mergeState(update func(*storedState)) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		state := &storedState{LastViewed: make(map[string]float64)}

		item, err := txn.Get(s.key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			// First write.
		case err != nil:
			return fmt.Errorf("get state: %w", err)
		default:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, state)
			}); err != nil {
				return fmt.Errorf("decode state: %w", err)
			}
			if state.LastViewed == nil {
				state.LastViewed = make(map[string]float64)
			}
		}

		update(state)

		data, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("marshal state: %w", err)
		}
		return txn.Set(s.key, data)
	})
	if err != nil {
		return fmt.Errorf("persist stored state: %w", err)
	}
	return nil
}
