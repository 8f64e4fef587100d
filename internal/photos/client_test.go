// Albumrotor - Rotating Virtual Photo Album Service
// Copyright 2026 P. Kjellman (kjellman)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kjellman/albumrotor

package photos

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/goccy/go-json"
)

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func TestResolveAlbumDirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/albums/42" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("X-API-Key"); got != "secret" {
			t.Errorf("X-API-Key = %q, want %q", got, "secret")
		}
		writeJSON(t, w, Album{ID: 42, Name: "Holidays", ItemCount: 10})
	}))
	defer server.Close()

	c := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "secret"})
	album, err := c.ResolveAlbum(context.Background(), 42)
	if err != nil {
		t.Fatalf("ResolveAlbum() error = %v", err)
	}
	if album.ID != 42 || album.Name != "Holidays" {
		t.Errorf("ResolveAlbum() = %+v, want id 42 name Holidays", album)
	}
}

func TestResolveAlbumFallsBackToListScan(t *testing.T) {
	// The direct lookup 404s even though the album exists in the list;
	// the client must find it by scanning.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/albums/42":
			http.NotFound(w, r)
		case "/api/v1/albums":
			offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
			if offset > 0 {
				writeJSON(t, w, []Album{})
				return
			}
			writeJSON(t, w, []Album{
				{ID: 41, Name: "Other"},
				{ID: 42, Name: "Holidays", Shared: true, Passphrase: "pp"},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := NewClient(ClientConfig{BaseURL: server.URL})
	album, err := c.ResolveAlbum(context.Background(), 42)
	if err != nil {
		t.Fatalf("ResolveAlbum() error = %v", err)
	}
	if album.ID != 42 || album.Passphrase != "pp" {
		t.Errorf("ResolveAlbum() = %+v, want scanned album 42", album)
	}
}

func TestResolveAlbumNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/albums" {
			writeJSON(t, w, []Album{{ID: 1}})
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	c := NewClient(ClientConfig{BaseURL: server.URL})
	_, err := c.ResolveAlbum(context.Background(), 99)
	if !errors.Is(err, ErrAlbumNotFound) {
		t.Errorf("ResolveAlbum() error = %v, want ErrAlbumNotFound", err)
	}
}

func TestResolveAlbumBackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(ClientConfig{BaseURL: server.URL})
	_, err := c.ResolveAlbum(context.Background(), 42)
	if err == nil {
		t.Fatal("ResolveAlbum() error = nil, want error")
	}
	if errors.Is(err, ErrAlbumNotFound) {
		t.Errorf("ResolveAlbum() error = %v, want backend error not ErrAlbumNotFound", err)
	}
}

func TestListAlbumItemsSetsAlbumFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/albums/7/items" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("passphrase"); got != "pp" {
			t.Errorf("passphrase = %q, want %q", got, "pp")
		}
		writeJSON(t, w, []Item{
			{ID: 1, FileName: "a.jpg", CacheKey: "1_100"},
			{ID: 2, FileName: "b.jpg", CacheKey: "2_200"},
		})
	}))
	defer server.Close()

	c := NewClient(ClientConfig{BaseURL: server.URL})
	album := &Album{ID: 7, Shared: true, Passphrase: "pp"}
	items, err := c.ListAlbumItems(context.Background(), album, 0, 100)
	if err != nil {
		t.Fatalf("ListAlbumItems() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("ListAlbumItems() returned %d items, want 2", len(items))
	}
	for _, it := range items {
		if it.AlbumID != 7 || !it.Shared {
			t.Errorf("item %d: AlbumID=%d Shared=%v, want 7/true", it.ID, it.AlbumID, it.Shared)
		}
	}
}

func TestDrainAlbumPaginates(t *testing.T) {
	// 250 items across pages of 100: two full pages plus a short one.
	const total = 250

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		var page []Item
		for i := offset; i < offset+limit && i < total; i++ {
			page = append(page, Item{ID: int64(i + 1), FileName: fmt.Sprintf("%d.jpg", i+1)})
		}
		writeJSON(t, w, page)
	}))
	defer server.Close()

	c := NewClient(ClientConfig{BaseURL: server.URL})
	items, err := DrainAlbum(context.Background(), c, &Album{ID: 7}, 100)
	if err != nil {
		t.Fatalf("DrainAlbum() error = %v", err)
	}
	if len(items) != total {
		t.Fatalf("DrainAlbum() returned %d items, want %d", len(items), total)
	}

	seen := make(map[int64]bool, total)
	for _, it := range items {
		if seen[it.ID] {
			t.Errorf("DrainAlbum() returned duplicate id %d", it.ID)
		}
		seen[it.ID] = true
	}
}

func TestDrainAlbumEmptyAlbum(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []Item{})
	}))
	defer server.Close()

	c := NewClient(ClientConfig{BaseURL: server.URL})
	items, err := DrainAlbum(context.Background(), c, &Album{ID: 7}, 100)
	if err != nil {
		t.Fatalf("DrainAlbum() error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("DrainAlbum() returned %d items, want 0", len(items))
	}
}

func TestGetItemDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/items/5" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		writeJSON(t, w, ItemDetail{ID: 5, FileName: "e.jpg", Address: "Oslo, Norway"})
	}))
	defer server.Close()

	c := NewClient(ClientConfig{BaseURL: server.URL})
	detail, err := c.GetItemDetail(context.Background(), Item{ID: 5})
	if err != nil {
		t.Fatalf("GetItemDetail() error = %v", err)
	}
	if detail.Address != "Oslo, Norway" {
		t.Errorf("GetItemDetail().Address = %q, want %q", detail.Address, "Oslo, Norway")
	}
}
