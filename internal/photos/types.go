// Albumrotor - Rotating Virtual Photo Album Service
// Copyright 2026 P. Kjellman (kjellman)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kjellman/albumrotor

package photos

import "time"

// Item is a single photo as reported by the photo backend. Items are
// immutable once fetched; the selector and session never modify them.
type Item struct {
	// ID is the backend's stable numeric identifier for the photo.
	ID int64 `json:"id"`

	// FileName is the original file name, used in display URLs.
	FileName string `json:"filename"`

	// TakenAt is the capture timestamp.
	TakenAt time.Time `json:"taken_at"`

	// CacheKey is the opaque thumbnail cache key the backend embeds in
	// display URLs. It is the only way to correlate a displayed image
	// back to its item.
	CacheKey string `json:"cache_key"`

	// AlbumID is the source album the item was listed from.
	AlbumID int64 `json:"album_id"`

	// Shared marks items that live in an album shared with the user
	// rather than owned by them.
	Shared bool `json:"shared"`
}

// Album is a source album reference resolved from the backend.
type Album struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ItemCount int    `json:"item_count"`
	Shared    bool   `json:"shared"`

	// Passphrase is set for shared albums and must accompany item
	// listing requests for them.
	Passphrase string `json:"passphrase,omitempty"`
}

// ItemDetail is the extended metadata for a single item, broadcast when
// that item is detected on a display. The backend returns a free-form
// document; only the fields the event payload needs are typed.
type ItemDetail struct {
	ID          int64             `json:"id"`
	FileName    string            `json:"filename"`
	TakenAt     time.Time         `json:"taken_at"`
	Description string            `json:"description,omitempty"`
	Address     string            `json:"address,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}
