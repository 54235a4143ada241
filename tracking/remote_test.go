package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leeforge/addonstate/bus"
	apperrors "github.com/leeforge/addonstate/errors"
)

func TestBusSink_Publishes(t *testing.T) {
	b := bus.New(8, zap.NewNop())
	defer b.Close()

	got := make(chan bus.Event, 1)
	b.Subscribe(TopicTracked, func(_ context.Context, e bus.Event) error {
		got <- e
		return nil
	})

	ev := Event{ID: "1", Action: string(ActionInstall), Category: "AMO Addon Installs", Label: "@a", SentAt: time.Now()}
	require.NoError(t, NewBusSink(b).Send(context.Background(), ev))

	select {
	case e := <-got:
		assert.Equal(t, ev, e.Data)
		assert.Equal(t, "tracking", e.Source)
	case <-time.After(time.Second):
		t.Fatal("tracking event not published")
	}
}

func TestMultiSink_SendsToAllAndReportsFirstError(t *testing.T) {
	first := errors.New("first")
	var calls int
	m := MultiSink{
		SinkFunc(func(context.Context, Event) error { calls++; return first }),
		SinkFunc(func(context.Context, Event) error { calls++; return errors.New("second") }),
		SinkFunc(func(context.Context, Event) error { calls++; return nil }),
	}

	err := m.Send(context.Background(), Event{})
	assert.ErrorIs(t, err, first)
	assert.Equal(t, 3, calls)
}

func TestRedisSink_DefaultKey(t *testing.T) {
	s := NewRedisSink(nil, "", 0)
	assert.Equal(t, "addonstate:tracking", s.Key())
}

func TestRedisSink_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	defer client.Close()

	err := NewRedisSink(client, "events", 100).Send(context.Background(), Event{ID: "1"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeExternal, apperrors.TypeOf(err))
}
