package tracking

import (
	"context"

	"github.com/go-redis/redis/v8"
	jsoniter "github.com/json-iterator/go"

	"github.com/leeforge/addonstate/bus"
	apperrors "github.com/leeforge/addonstate/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TopicTracked is published by BusSink for every event.
const TopicTracked = "addon.tracking.sent"

// RedisSink appends events as JSON to a capped Redis list, for a collector
// process to drain.
type RedisSink struct {
	client redis.Cmdable
	key    string
	maxLen int64
}

// NewRedisSink creates a RedisSink. maxLen <= 0 leaves the list uncapped.
func NewRedisSink(client redis.Cmdable, key string, maxLen int64) *RedisSink {
	if key == "" {
		key = "addonstate:tracking"
	}
	return &RedisSink{client: client, key: key, maxLen: maxLen}
}

// Key returns the list key events are pushed to.
func (s *RedisSink) Key() string {
	return s.key
}

func (s *RedisSink) Send(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.key, payload)
		if s.maxLen > 0 {
			pipe.LTrim(ctx, s.key, 0, s.maxLen-1)
		}
		return nil
	})
	if err != nil {
		return apperrors.NewExternal("push tracking event", err).WithDetail("key", s.key)
	}
	return nil
}

// BusSink republishes events on the notification bus.
type BusSink struct {
	publisher bus.Publisher
}

// NewBusSink creates a BusSink.
func NewBusSink(publisher bus.Publisher) *BusSink {
	return &BusSink{publisher: publisher}
}

func (s *BusSink) Send(ctx context.Context, e Event) error {
	return s.publisher.Publish(ctx, bus.Event{
		Name:      TopicTracked,
		Data:      e,
		Source:    "tracking",
		Timestamp: e.SentAt,
	})
}

// MultiSink fans an event out to several sinks and reports the first error.
type MultiSink []Sink

func (m MultiSink) Send(ctx context.Context, e Event) error {
	var first error
	for _, s := range m {
		if err := s.Send(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var (
	_ Sink = (*RedisSink)(nil)
	_ Sink = (*BusSink)(nil)
	_ Sink = MultiSink(nil)
)
