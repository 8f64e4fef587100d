// Albumrotor - Rotating Virtual Photo Album Service
// Copyright 2026 P. Kjellman (kjellman)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kjellman/albumrotor

// Package photos defines the narrow capability interface the album
// session needs from a photo backend, plus an HTTP adapter implementing
// it. Keeping the interface to three operations decouples the selector
// and session from any particular backend SDK.
package photos

import (
	"context"
	"errors"
	"fmt"
)

// ErrAlbumNotFound is returned by ResolveAlbum when the backend does not
// know the requested album id.
var ErrAlbumNotFound = errors.New("photos: album not found")

// DefaultPageSize is the page size used when draining album items.
const DefaultPageSize = 100

// Provider is the capability interface for a paginated photo backend.
//
// Implementations must treat offset/limit as a cursorless window: the
// caller drains an album by advancing offset until a short or empty page
// signals end of stream.
type Provider interface {
	// ResolveAlbum looks up an album by id. Returns ErrAlbumNotFound if
	// the backend has no such album.
	ResolveAlbum(ctx context.Context, albumID int64) (*Album, error)

	// ListAlbumItems returns one page of items from the album.
	ListAlbumItems(ctx context.Context, album *Album, offset, limit int) ([]Item, error)

	// GetItemDetail returns extended metadata for a single item.
	GetItemDetail(ctx context.Context, item Item) (*ItemDetail, error)
}

// DrainAlbum fetches every item in the album by walking pages of
// pageSize until a short or empty page. Albums can hold thousands of
// items, so this can take multiple seconds; callers must pass a context
// they are prepared to wait on.
func DrainAlbum(ctx context.Context, p Provider, album *Album, pageSize int) ([]Item, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var all []Item
	offset := 0

	for {
		page, err := p.ListAlbumItems(ctx, album, offset, pageSize)
		if err != nil {
			return nil, fmt.Errorf("list album %d items at offset %d: %w", album.ID, offset, err)
		}
		if len(page) == 0 {
			return all, nil
		}

		all = append(all, page...)
		offset += len(page)

		// A short page means the backend has no more items.
		if len(page) < pageSize {
			return all, nil
		}
	}
}
