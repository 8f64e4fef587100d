// Albumrotor - Rotating Virtual Photo Album Service
// Copyright 2026 P. Kjellman (kjellman)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kjellman/albumrotor

package photos

import (
	"context"
	"errors"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"
)

// flakyProvider fails every call until fixed.
type flakyProvider struct {
	failing bool
	calls   int
}

var errBackendDown = errors.New("backend down")

func (p *flakyProvider) ResolveAlbum(ctx context.Context, albumID int64) (*Album, error) {
	p.calls++
	if p.failing {
		return nil, errBackendDown
	}
	return &Album{ID: albumID}, nil
}

func (p *flakyProvider) ListAlbumItems(ctx context.Context, album *Album, offset, limit int) ([]Item, error) {
	p.calls++
	if p.failing {
		return nil, errBackendDown
	}
	return nil, nil
}

func (p *flakyProvider) GetItemDetail(ctx context.Context, item Item) (*ItemDetail, error) {
	p.calls++
	if p.failing {
		return nil, errBackendDown
	}
	return &ItemDetail{ID: item.ID}, nil
}

func TestBreakerPassesThroughHealthyBackend(t *testing.T) {
	inner := &flakyProvider{}
	client := NewBreakerClient(inner)
	ctx := context.Background()

	album, err := client.ResolveAlbum(ctx, 42)
	if err != nil {
		t.Fatalf("ResolveAlbum() error = %v", err)
	}
	if album.ID != 42 {
		t.Errorf("ResolveAlbum().ID = %d, want 42", album.ID)
	}

	detail, err := client.GetItemDetail(ctx, Item{ID: 5})
	if err != nil {
		t.Fatalf("GetItemDetail() error = %v", err)
	}
	if detail.ID != 5 {
		t.Errorf("GetItemDetail().ID = %d, want 5", detail.ID)
	}
}

func TestBreakerOpensOnSustainedFailures(t *testing.T) {
	inner := &flakyProvider{failing: true}
	client := NewBreakerClient(inner)
	ctx := context.Background()

	// Push the failure ratio past the trip threshold.
	for i := 0; i < 12; i++ {
		if _, err := client.ResolveAlbum(ctx, 42); err == nil {
			t.Fatal("ResolveAlbum() error = nil, want failure")
		}
	}

	callsBefore := inner.calls
	_, err := client.ResolveAlbum(ctx, 42)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("ResolveAlbum() error = %v, want ErrOpenState", err)
	}
	if inner.calls != callsBefore {
		t.Errorf("open breaker still reached the backend (%d calls, want %d)", inner.calls, callsBefore)
	}
}

func TestBreakerIgnoresAlbumNotFound(t *testing.T) {
	// A misconfigured album id returns ErrAlbumNotFound on every call;
	// the circuit must stay closed for real requests.
	inner := &fallbackMissProvider{}
	client := NewBreakerClient(inner)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		if _, err := client.ResolveAlbum(ctx, 99); !errors.Is(err, ErrAlbumNotFound) {
			t.Fatalf("ResolveAlbum() error = %v, want ErrAlbumNotFound", err)
		}
	}

	if _, err := client.ResolveAlbum(ctx, 99); errors.Is(err, gobreaker.ErrOpenState) {
		t.Error("breaker opened on ErrAlbumNotFound, want closed circuit")
	}
}

type fallbackMissProvider struct{}

func (p *fallbackMissProvider) ResolveAlbum(ctx context.Context, albumID int64) (*Album, error) {
	return nil, ErrAlbumNotFound
}

func (p *fallbackMissProvider) ListAlbumItems(ctx context.Context, album *Album, offset, limit int) ([]Item, error) {
	return nil, nil
}

func (p *fallbackMissProvider) GetItemDetail(ctx context.Context, item Item) (*ItemDetail, error) {
	return nil, nil
}
