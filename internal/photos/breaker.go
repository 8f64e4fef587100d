// Albumrotor - Rotating Virtual Photo Album Service
// Copyright 2026 P. Kjellman (kjellman)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kjellman/albumrotor

package photos

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/kjellman/albumrotor/internal/logging"
	"github.com/kjellman/albumrotor/internal/metrics"
)

// Ensure BreakerClient implements Provider.
var _ Provider = (*BreakerClient)(nil)

// BreakerClient wraps a Provider with a circuit breaker. A broken or
// unreachable photo backend fails album rebuilds fast instead of letting
// every page fetch run into its full timeout.
//
// The circuit breaker uses real time for its interval and timeout
// calculations; that is intentional for production resilience.
type BreakerClient struct {
	inner Provider
	cb    *gobreaker.CircuitBreaker[interface{}]
}

// NewBreakerClient wraps the provider with a circuit breaker that opens
// after a 60% failure rate over at least 10 requests, and probes
// recovery after one minute.
func NewBreakerClient(inner Provider) *BreakerClient {
	const cbName = "photo-backend"

	metrics.ProviderBreakerState.Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     time.Minute,

		// A missing album is a configuration problem, not backend
		// trouble; it must not open the circuit.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrAlbumNotFound)
		},

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Photo backend circuit breaker state change")
			metrics.ProviderBreakerState.Set(breakerStateValue(to))
		},
	})

	return &BreakerClient{inner: inner, cb: cb}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

// ResolveAlbum implements Provider.
func (b *BreakerClient) ResolveAlbum(ctx context.Context, albumID int64) (*Album, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.ResolveAlbum(ctx, albumID)
	})
	if err != nil {
		return nil, err
	}
	album, _ := result.(*Album)
	return album, nil
}

// ListAlbumItems implements Provider.
func (b *BreakerClient) ListAlbumItems(ctx context.Context, album *Album, offset, limit int) ([]Item, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.ListAlbumItems(ctx, album, offset, limit)
	})
	if err != nil {
		return nil, err
	}
	items, _ := result.([]Item)
	return items, nil
}

// GetItemDetail implements Provider.
func (b *BreakerClient) GetItemDetail(ctx context.Context, item Item) (*ItemDetail, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.GetItemDetail(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	detail, _ := result.(*ItemDetail)
	return detail, nil
}
