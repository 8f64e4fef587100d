// Albumrotor - Rotating Virtual Photo Album Service
// Copyright 2026 P. Kjellman (kjellman)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kjellman/albumrotor

/*
client.go - Photo Station REST API Client

This file implements a REST API client for a Synology-Photos-style photo
backend. It provides album resolution, paginated item listing, and
per-item detail lookup.

Request configuration:
  - Authentication: X-API-Key header on all requests (pass-through; token
    management is out of scope)
  - Pagination: offset/limit query parameters
  - Rate limiting: a token bucket paces page fetches so draining a large
    album does not hammer the backend
*/

package photos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/kjellman/albumrotor/internal/logging"
)

// Ensure Client implements Provider.
var _ Provider = (*Client)(nil)

// ClientConfig holds configuration for the photo backend client.
type ClientConfig struct {
	// BaseURL is the backend root, e.g. http://nas.local:5000.
	BaseURL string

	// APIKey is sent as X-API-Key on every request.
	APIKey string

	// Timeout bounds each individual HTTP request. Default: 30s.
	Timeout time.Duration

	// PageRate limits page fetches per second while draining albums.
	// Zero disables rate limiting.
	PageRate float64
}

// Client provides access to the photo backend REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new photo backend API client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.PageRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.PageRate), 1)
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

// ResolveAlbum looks up an album by id.
//
// Some backends intermittently fail to find an album by direct id lookup
// even though it exists; when the direct lookup misses, the client falls
// back to scanning the full album list before reporting ErrAlbumNotFound.
func (c *Client) ResolveAlbum(ctx context.Context, albumID int64) (*Album, error) {
	var album Album
	err := c.getJSON(ctx, "/api/v1/albums/"+strconv.FormatInt(albumID, 10), nil, &album)
	if err == nil {
		return &album, nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("resolve album %d: %w", albumID, err)
	}

	logging.Debug().Int64("album_id", albumID).Msg("Direct album lookup missed, scanning album list")

	offset := 0
	for {
		page, err := c.listAlbums(ctx, offset, DefaultPageSize)
		if err != nil {
			return nil, fmt.Errorf("scan albums for %d: %w", albumID, err)
		}
		if len(page) == 0 {
			return nil, ErrAlbumNotFound
		}
		for i := range page {
			if page[i].ID == albumID {
				return &page[i], nil
			}
		}
		if len(page) < DefaultPageSize {
			return nil, ErrAlbumNotFound
		}
		offset += len(page)
	}
}

// ListAlbumItems returns one page of items from the album, including the
// capture timestamp and thumbnail cache key for each.
func (c *Client) ListAlbumItems(ctx context.Context, album *Album, offset, limit int) ([]Item, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	query := url.Values{
		"offset": []string{strconv.Itoa(offset)},
		"limit":  []string{strconv.Itoa(limit)},
	}
	if album.Passphrase != "" {
		query.Set("passphrase", album.Passphrase)
	}

	var items []Item
	path := "/api/v1/albums/" + strconv.FormatInt(album.ID, 10) + "/items"
	if err := c.getJSON(ctx, path, query, &items); err != nil {
		return nil, fmt.Errorf("list items of album %d: %w", album.ID, err)
	}

	for i := range items {
		items[i].AlbumID = album.ID
		items[i].Shared = album.Shared
	}

	return items, nil
}

// GetItemDetail returns extended metadata for a single item.
func (c *Client) GetItemDetail(ctx context.Context, item Item) (*ItemDetail, error) {
	var detail ItemDetail
	path := "/api/v1/items/" + strconv.FormatInt(item.ID, 10)
	if err := c.getJSON(ctx, path, nil, &detail); err != nil {
		return nil, fmt.Errorf("get detail of item %d: %w", item.ID, err)
	}
	return &detail, nil
}

// listAlbums returns one page of the full album list.
func (c *Client) listAlbums(ctx context.Context, offset, limit int) ([]Album, error) {
	query := url.Values{
		"offset": []string{strconv.Itoa(offset)},
		"limit":  []string{strconv.Itoa(limit)},
	}

	var albums []Album
	if err := c.getJSON(ctx, "/api/v1/albums", query, &albums); err != nil {
		return nil, err
	}
	return albums, nil
}

// statusError carries a non-2xx response status so callers can tell a
// missing resource apart from a failing backend.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("photo backend returned status %d: %s", e.code, e.body)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

// getJSON executes a GET request and decodes the JSON response body.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, result interface{}) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr != nil {
			return &statusError{code: resp.StatusCode, body: "(failed to read body)"}
		}
		return &statusError{code: resp.StatusCode, body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response of %s: %w", path, err)
	}

	return nil
}
