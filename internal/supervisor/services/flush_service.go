// Albumrotor - Rotating Virtual Photo Album Service
// Copyright 2026 P. Kjellman (kjellman)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kjellman/albumrotor

package services

import (
	"context"
	"time"

	"github.com/kjellman/albumrotor/internal/recency"
)

// FlushService periodically offers the recency store a chance to flush
// buffered view timestamps. The store itself decides whether a flush is
// due; this service only supplies the clock ticks.
type FlushService struct {
	store    *recency.Store
	interval time.Duration
}

// NewFlushService creates a flush ticker. The check interval should be
// well below the store's flush interval so a due flush is not delayed
// by a full period.
func NewFlushService(store *recency.Store, interval time.Duration) *FlushService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &FlushService{store: store, interval: interval}
}

// Serve implements suture.Service.
func (s *FlushService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			s.store.FlushIfDue(now)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *FlushService) String() string {
	return "recency-flush"
}
