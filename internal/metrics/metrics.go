// Albumrotor - Rotating Virtual Photo Album Service
// Copyright 2026 P. Kjellman (kjellman)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kjellman/albumrotor

// Package metrics provides Prometheus instrumentation for:
//   - Album rebuilds (duration, source size, selection size)
//   - View resolution (hits, lookup misses)
//   - Recency store flushes (count, dropped entries)
//   - Photo backend requests (page fetches, circuit breaker state)
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Album rebuild metrics
	RebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "album_rebuild_duration_seconds",
			Help:    "Duration of virtual album rebuilds in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120}, // Draining large albums can take minutes
		},
	)

	RebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_rebuilds_total",
			Help: "Total number of virtual album rebuilds",
		},
		[]string{"outcome"}, // "success", "error"
	)

	SourceItemsFetched = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "album_source_items_fetched",
			Help:    "Number of source items drained per rebuild",
			Buckets: []float64{10, 100, 500, 1000, 2500, 5000, 10000, 25000},
		},
	)

	SelectionSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "album_selection_size",
			Help: "Number of items in the current virtual album",
		},
	)

	// View resolution metrics
	ViewsResolved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "album_views_resolved_total",
			Help: "Total number of displayed images resolved back to an item",
		},
	)

	ViewLookupMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "album_view_lookup_misses_total",
			Help: "Total number of displayed images whose cache key was not in the active album",
		},
	)

	// Recency store metrics
	RecencyFlushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recency_flushes_total",
			Help: "Total number of recency buffer flushes",
		},
		[]string{"outcome"}, // "success", "error", "dropped"
	)

	RecencyDroppedEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recency_dropped_entries_total",
			Help: "Total number of buffered view records dropped because a flush was already in flight",
		},
	)

	RecencyBufferSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recency_buffer_entries",
			Help: "Current number of buffered view records awaiting flush",
		},
	)

	// Photo backend metrics
	ProviderPageFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_page_fetches_total",
			Help: "Total number of item pages fetched from the photo backend",
		},
		[]string{"outcome"}, // "success", "error"
	)

	ProviderBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "provider_circuit_breaker_state",
			Help: "Photo backend circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
	)

	// HTTP API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)
