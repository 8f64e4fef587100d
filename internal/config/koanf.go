// Albumrotor - Rotating Virtual Photo Album Service
// Copyright 2026 P. Kjellman (kjellman)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kjellman/albumrotor

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, first match
// wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/albumrotor/config.yaml",
	"/etc/albumrotor/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults, applied first and then
// overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8480,
			Timeout: 30 * time.Second,
		},
		Photos: PhotosConfig{
			URL:      "",
			APIKey:   "",
			Timeout:  30 * time.Second,
			PageRate: 4, // Draining thousands of items should not hammer the backend
			PageSize: 100,
		},
		Album: AlbumConfig{
			ID:               "default",
			SourceAlbums:     nil,
			MaxItems:         200,
			DailyPercent:     0,
			WeeklyPercent:    0,
			RebuildInterval:  24 * time.Hour,
			RestoreOnStartup: true,
		},
		Storage: StorageConfig{
			Path:          "/data/albumrotor",
			FlushInterval: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration with layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// HTTP_PORT -> server.port, ALBUM_MAX_ITEMS -> album.max_items, ...
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSourceAlbums(k); err != nil {
		return nil, fmt.Errorf("failed to process source albums: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// processSourceAlbums converts a comma-separated ALBUM_SOURCE_ALBUMS env
// value into the int64 slice the config expects. YAML files provide the
// slice directly and are left alone.
func processSourceAlbums(k *koanf.Koanf) error {
	const path = "album.source_albums"

	val := k.Get(path)
	strVal, ok := val.(string)
	if !ok || strVal == "" {
		return nil
	}

	parts := strings.Split(strVal, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return fmt.Errorf("source album id %q is not numeric: %w", p, err)
		}
		ids = append(ids, id)
	}

	if err := k.Set(path, ids); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config
// paths. Unknown variables are dropped so unrelated environment noise
// cannot leak into the configuration.
func envTransformFunc(key string) string {
	mappings := map[string]string{
		"HTTP_HOST":    "server.host",
		"HTTP_PORT":    "server.port",
		"HTTP_TIMEOUT": "server.timeout",

		"PHOTOS_URL":       "photos.url",
		"PHOTOS_API_KEY":   "photos.api_key",
		"PHOTOS_TIMEOUT":   "photos.timeout",
		"PHOTOS_PAGE_RATE": "photos.page_rate",
		"PHOTOS_PAGE_SIZE": "photos.page_size",

		"ALBUM_ID":                 "album.id",
		"ALBUM_SOURCE_ALBUMS":      "album.source_albums",
		"ALBUM_MAX_ITEMS":          "album.max_items",
		"ALBUM_DAILY_PERCENT":      "album.daily_percent",
		"ALBUM_WEEKLY_PERCENT":     "album.weekly_percent",
		"ALBUM_REBUILD_INTERVAL":   "album.rebuild_interval",
		"ALBUM_RESTORE_ON_STARTUP": "album.restore_on_startup",

		"STORAGE_PATH":           "storage.path",
		"STORAGE_FLUSH_INTERVAL": "storage.flush_interval",

		"LOG_LEVEL":  "logging.level",
		"LOG_FORMAT": "logging.format",
		"LOG_CALLER": "logging.caller",
	}

	if mapped, ok := mappings[strings.ToUpper(key)]; ok {
		return mapped
	}
	return "" // drop unknown variables
}
