// Albumrotor - Rotating Virtual Photo Album Service
// Copyright 2026 P. Kjellman (kjellman)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kjellman/albumrotor

// Package selector implements the virtual album selection algorithm.
//
// Given the full source item set and per-item last-viewed instants, it
// produces a bounded selection biased toward items captured "today" or
// "this week" (ignoring year) and away from recently shown items.
//
// The selection pipeline:
//
//  1. Shuffle the source items. The following sort is stable, so the
//     shuffle is the sole source of randomness among items with equal
//     (or absent) recency.
//  2. Stable-sort ascending by last-viewed instant; never-viewed items
//     sort first.
//  3. Fill quota buckets for "today" and "this week" capture dates,
//     each a uniformly random subset of its bucket.
//  4. Fill the remaining budget with the least-recently-viewed items
//     from the general pool, in recency order.
package selector

import (
	"math/rand"
	"sort"
	"time"

	"github.com/kjellman/albumrotor/internal/calendar"
	"github.com/kjellman/albumrotor/internal/photos"
)

// Config controls the bounds of a selection.
type Config struct {
	// MaxItems is the maximum total size of the selection. Zero yields
	// an empty selection.
	MaxItems int

	// DailyPercent is the share of MaxItems (0-100) reserved for items
	// captured on the reference day, year-agnostic.
	DailyPercent int

	// WeeklyPercent is the share of MaxItems (0-100) reserved for items
	// captured within a week of the reference day, year-agnostic.
	WeeklyPercent int
}

// Option configures a Selector.
type Option func(*Selector)

// WithRand sets the random source, for deterministic tests.
func WithRand(rng *rand.Rand) Option {
	return func(s *Selector) { s.rng = rng }
}

// WithClock sets the reference-time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Selector) { s.now = now }
}

// Selector produces bounded selections from a source item set.
type Selector struct {
	cfg Config
	rng *rand.Rand
	now func() time.Time
}

// New creates a Selector with the given config.
func New(cfg Config, opts ...Option) *Selector {
	s := &Selector{
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // selection shuffling, not cryptography
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select returns at most cfg.MaxItems items drawn from sourceItems.
//
// recency maps item id to last-viewed instant (Unix seconds); items
// missing from the map are treated as never viewed and sort first.
// sourceItems is not modified. The result contains no duplicate ids; an
// item lands in at most one of the daily, weekly, or general portions.
func (s *Selector) Select(sourceItems []photos.Item, recency map[int64]float64) []photos.Item {
	if s.cfg.MaxItems <= 0 || len(sourceItems) == 0 {
		return nil
	}

	pool := make([]photos.Item, len(sourceItems))
	copy(pool, sourceItems)

	// Shuffle before the stable sort so ties among equal-recency items
	// (in particular everything never viewed) come out in random order.
	s.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	sort.SliceStable(pool, func(i, j int) bool {
		return recency[pool[i].ID] < recency[pool[j].ID]
	})

	dailyMax := s.cfg.MaxItems * s.cfg.DailyPercent / 100
	weeklyMax := s.cfg.MaxItems * s.cfg.WeeklyPercent / 100

	var selected []photos.Item
	remaining := func() int { return s.cfg.MaxItems - len(selected) }

	if dailyMax > 0 || weeklyMax > 0 {
		reference := s.now()

		// Today takes precedence: an item captured today never counts
		// against the weekly bucket.
		var today, week []photos.Item
		for _, item := range pool {
			switch {
			case calendar.SameDay(reference, item.TakenAt):
				today = append(today, item)
			case calendar.WithinWeek(reference, item.TakenAt):
				week = append(week, item)
			}
		}

		selected = append(selected, s.randomSubset(today, minInt(dailyMax, remaining()))...)
		selected = append(selected, s.randomSubset(week, minInt(weeklyMax, remaining()))...)

		pool = removeByID(pool, selected)
	}

	// The general fill intentionally keeps recency order: least recently
	// viewed first.
	if n := minInt(remaining(), len(pool)); n > 0 {
		selected = append(selected, pool[:n]...)
	}

	return selected
}

// randomSubset returns up to n items from bucket. When the bucket is
// larger than n the subset is uniformly random, not a prefix: recency
// order carries no meaning once items are already filtered to the day
// or week.
func (s *Selector) randomSubset(bucket []photos.Item, n int) []photos.Item {
	if n <= 0 {
		return nil
	}
	if len(bucket) <= n {
		return bucket
	}

	shuffled := make([]photos.Item, len(bucket))
	copy(shuffled, bucket)
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	return shuffled[:n]
}

// removeByID returns pool minus any item whose id appears in used.
// Items are compared by id, never by deep equality.
func removeByID(pool, used []photos.Item) []photos.Item {
	usedIDs := make(map[int64]struct{}, len(used))
	for _, item := range used {
		usedIDs[item.ID] = struct{}{}
	}

	kept := pool[:0:0]
	for _, item := range pool {
		if _, ok := usedIDs[item.ID]; !ok {
			kept = append(kept, item)
		}
	}
	return kept
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
