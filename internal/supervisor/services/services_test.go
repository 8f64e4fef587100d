// Albumrotor - Rotating Virtual Photo Album Service
// Copyright 2026 P. Kjellman (kjellman)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kjellman/albumrotor

package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/thejerf/suture/v4"

	"github.com/kjellman/albumrotor/internal/album"
	"github.com/kjellman/albumrotor/internal/photos"
	"github.com/kjellman/albumrotor/internal/recency"
	"github.com/kjellman/albumrotor/internal/selector"
)

// Interface assertions: every service must plug into the supervisor.
var (
	_ suture.Service = (*HTTPService)(nil)
	_ suture.Service = (*FlushService)(nil)
	_ suture.Service = (*RebuildService)(nil)
)

type staticProvider struct {
	items        []photos.Item
	rebuildCalls int
}

func (p *staticProvider) ResolveAlbum(ctx context.Context, albumID int64) (*photos.Album, error) {
	p.rebuildCalls++
	return &photos.Album{ID: albumID}, nil
}

func (p *staticProvider) ListAlbumItems(ctx context.Context, a *photos.Album, offset, limit int) ([]photos.Item, error) {
	if offset >= len(p.items) {
		return nil, nil
	}
	return p.items, nil
}

func (p *staticProvider) GetItemDetail(ctx context.Context, item photos.Item) (*photos.ItemDetail, error) {
	return &photos.ItemDetail{ID: item.ID}, nil
}

func openTestStore(t *testing.T, flushInterval time.Duration) *recency.Store {
	t.Helper()

	opts := badger.DefaultOptions(t.TempDir())
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return recency.NewStore(db, "service-test", flushInterval)
}

func TestHTTPServiceStopsOnCancel(t *testing.T) {
	server := &http.Server{
		Addr:    "127.0.0.1:0",
		Handler: http.NotFoundHandler(),
	}
	svc := NewHTTPService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// Give the listener a moment to come up, then stop.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

func TestHTTPServiceReportsListenFailure(t *testing.T) {
	server := &http.Server{Addr: "256.256.256.256:1", Handler: http.NotFoundHandler()}
	svc := NewHTTPService(server, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := svc.Serve(ctx); err == nil || errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() error = %v, want listen failure", err)
	}
}

func TestFlushServiceTicksTheStore(t *testing.T) {
	store := openTestStore(t, 30*time.Millisecond)
	svc := NewFlushService(store, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	store.RecordView(1, 111)
	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	viewed, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if viewed[1] != 111 {
		t.Errorf("Load()[1] = %v, want 111 flushed by ticker", viewed[1])
	}
}

func TestRebuildServiceDisabledInterval(t *testing.T) {
	provider := &staticProvider{items: []photos.Item{{ID: 1, CacheKey: "k"}}}
	store := openTestStore(t, time.Minute)
	sel := selector.New(selector.Config{MaxItems: 10})

	session, err := album.NewSession(album.Config{
		ID:           "service-test",
		SourceAlbums: []int64{7},
		MaxItems:     10,
	}, provider, store, sel, nil)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	svc := NewRebuildService(session, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}

	if provider.rebuildCalls != 0 {
		t.Errorf("disabled scheduler still rebuilt (%d resolve calls)", provider.rebuildCalls)
	}
}

func TestRebuildServicePeriodicRebuild(t *testing.T) {
	provider := &staticProvider{items: []photos.Item{{ID: 1, CacheKey: "k"}}}
	store := openTestStore(t, time.Minute)
	sel := selector.New(selector.Config{MaxItems: 10})

	session, err := album.NewSession(album.Config{
		ID:           "service-test",
		SourceAlbums: []int64{7},
		MaxItems:     10,
	}, provider, store, sel, nil)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	svc := NewRebuildService(session, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(150 * time.Millisecond)
	cancel()
	<-done

	if provider.rebuildCalls == 0 {
		t.Error("scheduler never rebuilt the album")
	}
}
