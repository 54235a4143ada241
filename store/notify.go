package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/leeforge/addonstate/bus"
	"github.com/leeforge/addonstate/install"
)

// TopicChanged is published with an install.Change after every apply.
const TopicChanged = "addon.install.changed"

// NotifyingStore publishes a change notification after each successful apply.
type NotifyingStore struct {
	Store
	publisher bus.Publisher
	logger    *zap.Logger
}

// Notifying decorates s so that every Apply is announced on publisher.
func Notifying(s Store, publisher bus.Publisher, logger *zap.Logger) *NotifyingStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotifyingStore{Store: s, publisher: publisher, logger: logger}
}

func (n *NotifyingStore) Apply(ctx context.Context, guid string, ev install.Event) (install.Record, error) {
	// The previous record is read separately, so under concurrent applies it
	// may not be the exact predecessor. Notifications are advisory.
	prev, err := n.Store.Get(ctx, guid)
	if err != nil {
		prev = install.NewRecord(guid)
	}

	rec, err := n.Store.Apply(ctx, guid, ev)
	if err != nil {
		return rec, err
	}

	change := install.Change{GUID: guid, Event: ev.Name(), Previous: prev, Current: rec}
	if err := n.publisher.Publish(ctx, bus.Event{Name: TopicChanged, Data: change, Source: "store"}); err != nil {
		n.logger.Warn("install change not published",
			zap.String("guid", guid),
			zap.String("event", ev.Name()),
			zap.Error(err))
	}
	return rec, nil
}

// List delegates when the wrapped store can enumerate.
func (n *NotifyingStore) List(ctx context.Context) ([]install.Record, error) {
	if l, ok := n.Store.(Lister); ok {
		return l.List(ctx)
	}
	return nil, nil
}
