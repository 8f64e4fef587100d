// Albumrotor - Rotating Virtual Photo Album Service
// Copyright 2026 P. Kjellman (kjellman)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kjellman/albumrotor

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/kjellman/albumrotor/internal/album"
	"github.com/kjellman/albumrotor/internal/photos"
	"github.com/kjellman/albumrotor/internal/recency"
	"github.com/kjellman/albumrotor/internal/selector"
)

type stubProvider struct {
	items []photos.Item
	fail  bool
}

func (p *stubProvider) ResolveAlbum(ctx context.Context, albumID int64) (*photos.Album, error) {
	if p.fail {
		return nil, context.DeadlineExceeded
	}
	return &photos.Album{ID: albumID}, nil
}

func (p *stubProvider) ListAlbumItems(ctx context.Context, a *photos.Album, offset, limit int) ([]photos.Item, error) {
	if offset >= len(p.items) {
		return nil, nil
	}
	end := offset + limit
	if end > len(p.items) {
		end = len(p.items)
	}
	return p.items[offset:end], nil
}

func (p *stubProvider) GetItemDetail(ctx context.Context, item photos.Item) (*photos.ItemDetail, error) {
	return &photos.ItemDetail{ID: item.ID}, nil
}

func newTestRouter(t *testing.T, provider photos.Provider) http.Handler {
	t.Helper()

	opts := badger.DefaultOptions(t.TempDir())
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := recency.NewStore(db, "api-test", 10*time.Minute)
	sel := selector.New(selector.Config{MaxItems: 100})

	session, err := album.NewSession(album.Config{
		ID:           "api-test",
		SourceAlbums: []int64{7},
		MaxItems:     100,
	}, provider, store, sel, nil)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	return NewRouter(NewHandler(session))
}

func testProviderItems() []photos.Item {
	return []photos.Item{
		{ID: 1, FileName: "a.jpg", CacheKey: "key_a", TakenAt: time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 2, FileName: "b.jpg", CacheKey: "key_b", TakenAt: time.Date(2020, time.January, 2, 0, 0, 0, 0, time.UTC)},
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, &stubProvider{items: testProviderItems()})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/v1/health status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestItemsEndpoint(t *testing.T) {
	router := newTestRouter(t, &stubProvider{items: testProviderItems()})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/album/items", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/album/items status = %d, want %d", rec.Code, http.StatusOK)
	}

	var items []photos.Item
	if err := json.NewDecoder(rec.Body).Decode(&items); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("GET /api/v1/album/items returned %d items, want 2", len(items))
	}
}

func TestItemsEndpointBackendFailure(t *testing.T) {
	router := newTestRouter(t, &stubProvider{fail: true})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/album/items", nil))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("GET /api/v1/album/items status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
}

func TestRebuildEndpoint(t *testing.T) {
	router := newTestRouter(t, &stubProvider{items: testProviderItems()})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/album/rebuild", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("POST /api/v1/album/rebuild status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestDisplayedEndpoint(t *testing.T) {
	router := newTestRouter(t, &stubProvider{items: testProviderItems()})

	// Populate the album first so the cache key index exists.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/album/rebuild", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("rebuild status = %d, want %d", rec.Code, http.StatusOK)
	}

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{
			name:     "known cache key",
			body:     `{"url": "http://display.local/image/srv1/key_a/a.jpg"}`,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "unknown cache key",
			body:     `{"url": "http://display.local/image/srv1/other/a.jpg"}`,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "missing url field",
			body:     `{}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "not a url",
			body:     `{"url": "not a url"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "malformed json",
			body:     `{"url":`,
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/album/displayed", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("POST /api/v1/album/displayed status = %d, want %d (body %s)",
					rec.Code, tt.wantCode, tt.body)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, &stubProvider{items: testProviderItems()})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("GET /metrics status = %d, want %d", rec.Code, http.StatusOK)
	}
}
