// Albumrotor - Rotating Virtual Photo Album Service
// Copyright 2026 P. Kjellman (kjellman)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kjellman/albumrotor

// Package events broadcasts typed "current photo changed" notifications
// over an in-process Watermill pub/sub. Collaborators subscribe through
// a typed channel instead of matching stringly-typed global event names.
//
// Delivery is fire-and-forget: publishing never blocks on slow
// subscribers and no delivery guarantee is made.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/kjellman/albumrotor/internal/logging"
	"github.com/kjellman/albumrotor/internal/photos"
)

// TopicCurrentPhotoChanged carries CurrentPhotoChanged events.
const TopicCurrentPhotoChanged = "photo.current.changed"

// CurrentPhotoChanged is published whenever a displayed image resolves
// to an item in the active album.
type CurrentPhotoChanged struct {
	ItemID      int64              `json:"item_id"`
	FileName    string             `json:"filename"`
	TakenAt     time.Time          `json:"taken_at"`
	DisplayedAt time.Time          `json:"displayed_at"`
	// Detail is the backend's extended metadata for the item; nil when
	// the detail fetch failed and the event degraded to a bare payload.
	Detail *photos.ItemDetail `json:"detail,omitempty"`
}

// Bus is an in-process publish/subscribe hub.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus creates a bus with buffered subscriber channels so a stalled
// subscriber cannot backpressure the album session.
func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			newWatermillLogger(),
		),
	}
}

// PublishCurrentPhoto broadcasts the event to all current subscribers.
func (b *Bus) PublishCurrentPhoto(ctx context.Context, event CurrentPhotoChanged) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal current photo event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), data)
	msg.SetContext(ctx)

	if err := b.pubsub.Publish(TopicCurrentPhotoChanged, msg); err != nil {
		return fmt.Errorf("publish current photo event: %w", err)
	}
	return nil
}

// SubscribeCurrentPhoto returns a typed channel of events. The channel
// closes when ctx is canceled or the bus is closed. Undecodable messages
// are logged and skipped.
func (b *Bus) SubscribeCurrentPhoto(ctx context.Context) (<-chan CurrentPhotoChanged, error) {
	messages, err := b.pubsub.Subscribe(ctx, TopicCurrentPhotoChanged)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", TopicCurrentPhotoChanged, err)
	}

	out := make(chan CurrentPhotoChanged, 16)
	go func() {
		defer close(out)
		for msg := range messages {
			var event CurrentPhotoChanged
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				logging.Err(err).Str("message_id", msg.UUID).Msg("Dropping undecodable current photo event")
				msg.Ack()
				continue
			}
			msg.Ack()

			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close shuts down the pub/sub and closes all subscriber channels.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// watermillLogger adapts zerolog to watermill's LoggerAdapter.
type watermillLogger struct {
	fields watermill.LogFields
}

func newWatermillLogger() watermill.LoggerAdapter {
	return &watermillLogger{}
}

func (l *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	logging.Err(err).Fields(map[string]interface{}(l.fields.Add(fields))).Msg(msg)
}

func (l *watermillLogger) Info(msg string, fields watermill.LogFields) {
	logging.Info().Fields(map[string]interface{}(l.fields.Add(fields))).Msg(msg)
}

func (l *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	logging.Debug().Fields(map[string]interface{}(l.fields.Add(fields))).Msg(msg)
}

func (l *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	logging.Debug().Fields(map[string]interface{}(l.fields.Add(fields))).Msg(msg)
}

func (l *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillLogger{fields: l.fields.Add(fields)}
}
