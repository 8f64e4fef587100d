// Albumrotor - Rotating Virtual Photo Album Service
// Copyright 2026 P. Kjellman (kjellman)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kjellman/albumrotor

// Package config loads layered configuration: built-in defaults, then an
// optional YAML file, then environment variables.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Photos  PhotosConfig  `koanf:"photos"`
	Album   AlbumConfig   `koanf:"album"`
	Storage StorageConfig `koanf:"storage"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// PhotosConfig configures the photo backend client.
type PhotosConfig struct {
	// URL is the backend root, e.g. http://nas.local:5000.
	URL string `koanf:"url"`

	// APIKey is passed through as X-API-Key; token lifecycle management
	// is the backend's concern.
	APIKey string `koanf:"api_key"`

	// Timeout bounds each backend request.
	Timeout time.Duration `koanf:"timeout"`

	// PageRate limits item page fetches per second while draining
	// albums. Zero disables pacing.
	PageRate float64 `koanf:"page_rate"`

	// PageSize is the item page size used when draining albums.
	PageSize int `koanf:"page_size"`
}

// AlbumConfig configures the virtual album selection.
type AlbumConfig struct {
	// ID names the virtual album; it keys persisted state.
	ID string `koanf:"id"`

	// SourceAlbums are the backend album ids the selection draws from.
	SourceAlbums []int64 `koanf:"source_albums"`

	// MaxItems bounds the selection size.
	MaxItems int `koanf:"max_items"`

	// DailyPercent / WeeklyPercent are quota shares of MaxItems (0-100)
	// for items captured today / this week, year-agnostic.
	DailyPercent  int `koanf:"daily_percent"`
	WeeklyPercent int `koanf:"weekly_percent"`

	// RebuildInterval is how often the album is re-sampled. Zero
	// disables the periodic scheduler; rebuilds still happen lazily and
	// via the API.
	RebuildInterval time.Duration `koanf:"rebuild_interval"`

	// RestoreOnStartup re-matches the previously persisted selection
	// against fresh source items instead of rebuilding at startup.
	RestoreOnStartup bool `koanf:"restore_on_startup"`
}

// StorageConfig configures the BadgerDB state store.
type StorageConfig struct {
	// Path is the Badger data directory.
	Path string `koanf:"path"`

	// FlushInterval is the minimum time between recency buffer flushes.
	FlushInterval time.Duration `koanf:"flush_interval"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validatePhotos(); err != nil {
		return err
	}
	if err := c.validateAlbum(); err != nil {
		return err
	}
	return c.validateServer()
}

func (c *Config) validatePhotos() error {
	if c.Photos.URL == "" {
		return fmt.Errorf("PHOTOS_URL is required")
	}
	parsed, err := url.Parse(c.Photos.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("PHOTOS_URL %q is not a valid http(s) URL", c.Photos.URL)
	}
	if c.Photos.PageSize < 0 {
		return fmt.Errorf("PHOTOS_PAGE_SIZE must be non-negative, got %d", c.Photos.PageSize)
	}
	return nil
}

func (c *Config) validateAlbum() error {
	if c.Album.ID == "" {
		return fmt.Errorf("ALBUM_ID is required")
	}
	if len(c.Album.SourceAlbums) == 0 {
		return fmt.Errorf("ALBUM_SOURCE_ALBUMS is required")
	}
	if c.Album.MaxItems <= 0 {
		return fmt.Errorf("ALBUM_MAX_ITEMS must be positive, got %d", c.Album.MaxItems)
	}
	if c.Album.DailyPercent < 0 || c.Album.DailyPercent > 100 {
		return fmt.Errorf("ALBUM_DAILY_PERCENT must be 0-100, got %d", c.Album.DailyPercent)
	}
	if c.Album.WeeklyPercent < 0 || c.Album.WeeklyPercent > 100 {
		return fmt.Errorf("ALBUM_WEEKLY_PERCENT must be 0-100, got %d", c.Album.WeeklyPercent)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be 1-65535, got %d", c.Server.Port)
	}
	return nil
}
