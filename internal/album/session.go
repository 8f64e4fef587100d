// Albumrotor - Rotating Virtual Photo Album Service
// Copyright 2026 P. Kjellman (kjellman)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kjellman/albumrotor

// Package album orchestrates the virtual album lifecycle: draining
// source albums from the photo backend, running the selector, tracking
// the active selection, and feeding displayed-image views back into the
// recency store.
package album

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/kjellman/albumrotor/internal/events"
	"github.com/kjellman/albumrotor/internal/logging"
	"github.com/kjellman/albumrotor/internal/metrics"
	"github.com/kjellman/albumrotor/internal/photos"
	"github.com/kjellman/albumrotor/internal/recency"
	"github.com/kjellman/albumrotor/internal/selector"
)

// ErrLookupMiss is returned when a displayed image's cache key is not in
// the active album index. It is non-fatal; no state changes.
var ErrLookupMiss = errors.New("album: displayed image not found in active album")

// displayURLCacheKeySegment is the position of the thumbnail cache key
// in a displayed image's URL path when split on "/":
// /prefix/serverId/cacheKey/fileName.
const displayURLCacheKeySegment = 3

// Config holds the per-session selection parameters.
type Config struct {
	// ID names the virtual album; it keys the persisted state.
	ID string

	// SourceAlbums are the backend album ids the selection draws from.
	SourceAlbums []int64

	// MaxItems bounds the selection size.
	MaxItems int

	// DailyPercent and WeeklyPercent are quota shares of MaxItems
	// (0-100) for items captured today / this week, year-agnostic.
	DailyPercent  int
	WeeklyPercent int

	// PageSize is the item page size used when draining source albums.
	// Zero selects photos.DefaultPageSize.
	PageSize int
}

func (c Config) validate() error {
	if c.ID == "" {
		return errors.New("album id is required")
	}
	if len(c.SourceAlbums) == 0 {
		return errors.New("at least one source album is required")
	}
	if c.MaxItems <= 0 {
		return fmt.Errorf("max items must be positive, got %d", c.MaxItems)
	}
	if c.DailyPercent < 0 || c.DailyPercent > 100 {
		return fmt.Errorf("daily percent must be 0-100, got %d", c.DailyPercent)
	}
	if c.WeeklyPercent < 0 || c.WeeklyPercent > 100 {
		return fmt.Errorf("weekly percent must be 0-100, got %d", c.WeeklyPercent)
	}
	return nil
}

// Option configures a Session.
type Option func(*Session)

// WithClock sets the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session owns the active virtual album and its cache-key lookup index.
// Both are replaced atomically on each rebuild, never patched in place.
//
// A mutex serializes rebuilds against reads, so a lazy Items call racing
// an explicit Rebuild cannot observe a half-built album.
type Session struct {
	cfg      Config
	provider photos.Provider
	store    *recency.Store
	sel      *selector.Selector
	bus      *events.Bus
	now      func() time.Time

	mu    sync.Mutex
	items []photos.Item
	index map[string]photos.Item
}

// NewSession validates the configuration and wires a session. A missing
// provider, store, or source album list fails construction synchronously
// before any background work starts.
func NewSession(cfg Config, provider photos.Provider, store *recency.Store, sel *selector.Selector, bus *events.Bus, opts ...Option) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("album session config: %w", err)
	}
	if provider == nil {
		return nil, errors.New("album session config: photo provider is required")
	}
	if store == nil {
		return nil, errors.New("album session config: recency store is required")
	}
	if sel == nil {
		return nil, errors.New("album session config: selector is required")
	}

	s := &Session{
		cfg:      cfg,
		provider: provider,
		store:    store,
		sel:      sel,
		bus:      bus,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Rebuild re-samples the virtual album: drains all configured source
// albums, loads the recency mapping, runs the selector, and atomically
// replaces the active album and lookup index. Any failure along the way
// leaves the previous album intact.
//
// Draining can fetch thousands of items and take multiple seconds.
func (s *Session) Rebuild(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebuildLocked(ctx)
}

func (s *Session) rebuildLocked(ctx context.Context) error {
	logging.Debug().Str("album", s.cfg.ID).Msg("Rebuilding virtual album")
	start := time.Now()

	sourceItems, err := s.fetchSourceItems(ctx)
	if err != nil {
		metrics.RebuildsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("rebuild %s: %w", s.cfg.ID, err)
	}
	metrics.SourceItemsFetched.Observe(float64(len(sourceItems)))

	viewed, err := s.store.Load(ctx)
	if err != nil {
		metrics.RebuildsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("rebuild %s: load recency: %w", s.cfg.ID, err)
	}

	selected := s.sel.Select(sourceItems, viewed)

	ids := make([]int64, len(selected))
	for i, item := range selected {
		ids[i] = item.ID
	}
	if err := s.store.SaveSelection(ctx, ids); err != nil {
		metrics.RebuildsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("rebuild %s: persist selection: %w", s.cfg.ID, err)
	}

	s.replaceLocked(selected)

	metrics.RebuildsTotal.WithLabelValues("success").Inc()
	metrics.RebuildDuration.Observe(time.Since(start).Seconds())

	logging.Info().
		Str("album", s.cfg.ID).
		Int("source_items", len(sourceItems)).
		Int("selected", len(selected)).
		Dur("took", time.Since(start)).
		Msg("Virtual album rebuilt")
	return nil
}

// replaceLocked swaps in a new selection and rebuilds the cache-key
// index. Caller must hold s.mu.
func (s *Session) replaceLocked(selected []photos.Item) {
	index := make(map[string]photos.Item, len(selected))
	for _, item := range selected {
		index[item.CacheKey] = item
	}
	s.items = selected
	s.index = index
	metrics.SelectionSize.Set(float64(len(selected)))
}

// Items returns the active album, rebuilding it first if it is empty.
// Subsequent calls return the cached selection without refetching.
func (s *Session) Items(ctx context.Context) ([]photos.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		if err := s.rebuildLocked(ctx); err != nil {
			return nil, err
		}
	}

	out := make([]photos.Item, len(s.items))
	copy(out, s.items)
	return out, nil
}

// Restore re-populates the active album from the selection persisted by
// a previous run, matching stored ids against fresh source items. A
// restart keeps showing the same album instead of forcing a rebuild.
func (s *Session) Restore(ctx context.Context) error {
	ids, err := s.store.LoadSelection(ctx)
	if err != nil {
		return fmt.Errorf("restore %s: %w", s.cfg.ID, err)
	}
	if len(ids) == 0 {
		logging.Debug().Str("album", s.cfg.ID).Msg("No previously generated album to restore")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sourceItems, err := s.fetchSourceItems(ctx)
	if err != nil {
		return fmt.Errorf("restore %s: %w", s.cfg.ID, err)
	}

	byID := make(map[int64]photos.Item, len(sourceItems))
	for _, item := range sourceItems {
		byID[item.ID] = item
	}

	matched := make([]photos.Item, 0, len(ids))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			matched = append(matched, item)
		}
	}

	s.replaceLocked(matched)

	logging.Info().
		Str("album", s.cfg.ID).
		Int("stored", len(ids)).
		Int("matched", len(matched)).
		Msg("Restored previously generated album")
	return nil
}

// ResolveDisplayedImage parses the thumbnail cache key out of a
// displayed image's URL, records a view for the matching item, and
// broadcasts a current-photo-changed event carrying the item's extended
// metadata. A cache key that is not in the active album returns
// ErrLookupMiss and changes nothing.
func (s *Session) ResolveDisplayedImage(ctx context.Context, rawURL string) error {
	cacheKey, err := cacheKeyFromURL(rawURL)
	if err != nil {
		logging.Warn().Str("url", rawURL).Msg("Displayed image URL has no cache key segment")
		metrics.ViewLookupMisses.Inc()
		return ErrLookupMiss
	}

	s.mu.Lock()
	item, ok := s.index[cacheKey]
	s.mu.Unlock()

	if !ok {
		logging.Warn().Str("url", rawURL).Str("cache_key", cacheKey).Msg("Couldn't find cached info for displayed image")
		metrics.ViewLookupMisses.Inc()
		return ErrLookupMiss
	}

	now := s.now()
	s.store.RecordView(item.ID, float64(now.UnixNano())/float64(time.Second))
	s.store.FlushIfDue(now)
	metrics.ViewsResolved.Inc()

	event := events.CurrentPhotoChanged{
		ItemID:      item.ID,
		FileName:    item.FileName,
		TakenAt:     item.TakenAt,
		DisplayedAt: now,
	}

	// Detail enriches the event; its failure must not fail the view.
	detail, err := s.provider.GetItemDetail(ctx, item)
	if err != nil {
		logging.Warn().Err(err).Int64("item_id", item.ID).Msg("Item detail fetch failed, publishing bare event")
	} else {
		event.Detail = detail
	}

	if s.bus != nil {
		if err := s.bus.PublishCurrentPhoto(ctx, event); err != nil {
			logging.Err(err).Int64("item_id", item.ID).Msg("Current photo event publish failed")
		}
	}
	return nil
}

// Shutdown flushes and closes the recency store, joining any in-flight
// flush.
func (s *Session) Shutdown() error {
	return s.store.Close()
}

// fetchSourceItems drains every configured source album into one slice.
// Any page failure discards the partial accumulation.
func (s *Session) fetchSourceItems(ctx context.Context) ([]photos.Item, error) {
	var all []photos.Item

	for _, albumID := range s.cfg.SourceAlbums {
		album, err := s.provider.ResolveAlbum(ctx, albumID)
		if err != nil {
			return nil, fmt.Errorf("resolve source album %d: %w", albumID, err)
		}

		items, err := photos.DrainAlbum(ctx, s.provider, album, s.cfg.PageSize)
		if err != nil {
			metrics.ProviderPageFetches.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("drain source album %d: %w", albumID, err)
		}
		metrics.ProviderPageFetches.WithLabelValues("success").Inc()

		all = append(all, items...)
	}

	logging.Debug().Str("album", s.cfg.ID).Int("source_items", len(all)).Msg("Drained source albums")
	return all, nil
}

// cacheKeyFromURL extracts the thumbnail cache key from a display URL of
// the form scheme://host/prefix/serverId/cacheKey/fileName[?query]. The
// cache key's path position is the only structural assumption made
// about the URL.
func cacheKeyFromURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse display url: %w", err)
	}

	parts := strings.Split(parsed.Path, "/")
	if len(parts) <= displayURLCacheKeySegment || parts[displayURLCacheKeySegment] == "" {
		return "", fmt.Errorf("display url path %q has no cache key segment", parsed.Path)
	}
	return parts[displayURLCacheKeySegment], nil
}
