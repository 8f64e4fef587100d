// Albumrotor - Rotating Virtual Photo Album Service
// Copyright 2026 P. Kjellman (kjellman)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kjellman/albumrotor

// Package main is the entry point for the Albumrotor server.
//
// Albumrotor maintains a bounded, rotating selection of photos drawn
// from one or more source albums on a photo backend. Items captured on
// today's calendar day (in any year) and items captured within the
// surrounding week are favored, the rest of the selection fills with
// the least recently viewed photos.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered sources (env > config file > defaults)
//  2. Storage: BadgerDB for view timestamps and the persisted selection
//  3. Photo backend: REST client with rate limiting and a circuit breaker
//  4. Album session: the selection itself plus its display URL index
//  5. Supervisor tree: flush ticker, rebuild scheduler, HTTP API
//
// # Configuration
//
// Minimal environment:
//
//	export PHOTOS_URL=http://nas.local:5000
//	export PHOTOS_API_KEY=your-api-key
//	export ALBUM_SOURCE_ALBUMS=42,17
//	./albumrotor
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server stops
// accepting connections, supervised services wind down, and buffered
// view timestamps are flushed before the store closes.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/kjellman/albumrotor/internal/album"
	"github.com/kjellman/albumrotor/internal/api"
	"github.com/kjellman/albumrotor/internal/config"
	"github.com/kjellman/albumrotor/internal/events"
	"github.com/kjellman/albumrotor/internal/logging"
	"github.com/kjellman/albumrotor/internal/photos"
	"github.com/kjellman/albumrotor/internal/recency"
	"github.com/kjellman/albumrotor/internal/selector"
	"github.com/kjellman/albumrotor/internal/supervisor"
	"github.com/kjellman/albumrotor/internal/supervisor/services"
)

// flushCheckInterval is how often the flush ticker offers the store a
// chance to flush. Kept well below the flush interval so a due flush is
// picked up promptly.
const flushCheckInterval = time.Minute

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("album_id", cfg.Album.ID).
		Ints64("source_albums", cfg.Album.SourceAlbums).
		Int("max_items", cfg.Album.MaxItems).
		Str("storage_path", cfg.Storage.Path).
		Msg("Configuration loaded")

	// Open the state store
	opts := badger.DefaultOptions(cfg.Storage.Path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Storage.Path).Msg("Failed to open state store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing state store")
		}
	}()

	// Photo backend client, wrapped in a circuit breaker
	client := photos.NewClient(photos.ClientConfig{
		BaseURL:  cfg.Photos.URL,
		APIKey:   cfg.Photos.APIKey,
		Timeout:  cfg.Photos.Timeout,
		PageRate: cfg.Photos.PageRate,
	})
	provider := photos.NewBreakerClient(client)

	store := recency.NewStore(db, cfg.Album.ID, cfg.Storage.FlushInterval)

	bus := events.NewBus()
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	sel := selector.New(selector.Config{
		MaxItems:      cfg.Album.MaxItems,
		DailyPercent:  cfg.Album.DailyPercent,
		WeeklyPercent: cfg.Album.WeeklyPercent,
	})

	session, err := album.NewSession(album.Config{
		ID:            cfg.Album.ID,
		SourceAlbums:  cfg.Album.SourceAlbums,
		MaxItems:      cfg.Album.MaxItems,
		DailyPercent:  cfg.Album.DailyPercent,
		WeeklyPercent: cfg.Album.WeeklyPercent,
		PageSize:      cfg.Photos.PageSize,
	}, provider, store, sel, bus)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create album session")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Recover the persisted selection so a restart does not discard the
	// current rotation. Failure is non-fatal, the first Items call or
	// the scheduler rebuilds from scratch.
	if cfg.Album.RestoreOnStartup {
		if err := session.Restore(ctx); err != nil {
			logging.Warn().Err(err).Msg("Could not restore persisted selection, will rebuild")
		}
	}

	handler := api.NewHandler(session)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAlbumService(services.NewFlushService(store, flushCheckInterval))
	tree.AddAlbumService(services.NewRebuildService(session, cfg.Album.RebuildInterval))
	tree.AddAPIService(services.NewHTTPService(server, 10*time.Second))

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	// Final synchronous flush of buffered view timestamps
	if err := session.Shutdown(); err != nil {
		logging.Error().Err(err).Msg("Error flushing state on shutdown")
	}

	logging.Info().Msg("Application stopped gracefully")
}
