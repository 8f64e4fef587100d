// Albumrotor - Rotating Virtual Photo Album Service
// Copyright 2026 P. Kjellman (kjellman)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kjellman/albumrotor

package services

import (
	"context"
	"time"

	"github.com/kjellman/albumrotor/internal/album"
	"github.com/kjellman/albumrotor/internal/logging"
)

// RebuildService reselects the album contents on a fixed schedule so
// the rotation advances even when no client asks for it.
type RebuildService struct {
	session  *album.Session
	interval time.Duration
}

// NewRebuildService creates a rebuild scheduler. An interval of zero or
// less disables scheduled rebuilds; Serve then only waits for shutdown.
func NewRebuildService(session *album.Session, interval time.Duration) *RebuildService {
	return &RebuildService{session: session, interval: interval}
}

// Serve implements suture.Service.
func (s *RebuildService) Serve(ctx context.Context) error {
	if s.interval <= 0 {
		logging.Info().Msg("scheduled rebuilds disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.session.Rebuild(ctx); err != nil {
				logging.Warn().Err(err).Msg("scheduled rebuild failed, keeping previous selection")
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *RebuildService) String() string {
	return "album-rebuild"
}
