// Package bus is an asynchronous publish/subscribe bus for install notifications.
package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrBusClosed is returned when publishing to a closed Bus.
	ErrBusClosed = errors.New("event bus is closed")

	// ErrPublishTimeout is returned when the publish buffer is full and context expires.
	ErrPublishTimeout = errors.New("event publish timeout: buffer full")
)

// AllTopics subscribes a handler to every topic.
const AllTopics = "*"

// Event is a notification flowing through the bus.
type Event struct {
	ID        string    // assigned on publish when empty
	Name      string    // topic, e.g. "addon.install.changed"
	Data      any       // payload
	Source    string    // originating component
	Timestamp time.Time // when the event was created
}

// Handler processes one event. Errors are logged and otherwise ignored.
type Handler func(ctx context.Context, event Event) error

// Subscription represents an active subscription.
type Subscription interface {
	Unsubscribe()
}

// Publisher is the write side of the bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Bus delivers events on a buffered channel with backpressure.
// Handlers run concurrently; delivery order between handlers is not defined.
type Bus struct {
	subscribers map[string][]subscriberEntry
	mu          sync.RWMutex
	ch          chan envelope
	wg          sync.WaitGroup
	closed      atomic.Bool
	closeMu     sync.RWMutex // held for reading across every send
	logger      *zap.Logger
	nextID      atomic.Uint64
	done        chan struct{}
	stopped     chan struct{}
}

type envelope struct {
	ctx   context.Context
	event Event
}

type subscriberEntry struct {
	id      uint64
	handler Handler
}

type subscription struct {
	bus   *Bus
	topic string
	id    uint64
	once  sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()

		subs := s.bus.subscribers[s.topic]
		for i, entry := range subs {
			if entry.id == s.id {
				s.bus.subscribers[s.topic] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	})
}

// New creates a Bus with the given buffer size (default 1024).
func New(bufferSize int, logger *zap.Logger) *Bus {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Bus{
		subscribers: make(map[string][]subscriberEntry),
		ch:          make(chan envelope, bufferSize),
		logger:      logger,
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}

	go b.dispatch()
	return b
}

func (b *Bus) dispatch() {
	defer close(b.stopped)
	for {
		select {
		case env := <-b.ch:
			b.fanOut(env)
		case <-b.done:
			for {
				select {
				case env := <-b.ch:
					b.fanOut(env)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) fanOut(env envelope) {
	b.mu.RLock()
	subs := append([]subscriberEntry{}, b.subscribers[env.event.Name]...)
	subs = append(subs, b.subscribers[AllTopics]...)
	b.mu.RUnlock()

	for _, entry := range subs {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event handler panic",
						zap.String("event", env.event.Name),
						zap.Any("panic", r))
				}
			}()
			if err := h(env.ctx, env.event); err != nil {
				b.logger.Warn("event handler error",
					zap.String("event", env.event.Name),
					zap.String("event_id", env.event.ID),
					zap.Error(err))
			}
		}(entry.handler)
	}
}

// Publish enqueues an event. Blocks while the buffer is full until ctx expires.
// An event accepted before Close is always delivered.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	env := envelope{ctx: context.WithoutCancel(ctx), event: event}

	b.closeMu.RLock()
	defer b.closeMu.RUnlock()
	if b.closed.Load() {
		return ErrBusClosed
	}

	select {
	case b.ch <- env:
		return nil
	default:
		select {
		case b.ch <- env:
			return nil
		case <-ctx.Done():
			return ErrPublishTimeout
		}
	}
}

// Subscribe registers a handler for a topic, or AllTopics.
func (b *Bus) Subscribe(topic string, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID.Add(1)
	b.subscribers[topic] = append(b.subscribers[topic], subscriberEntry{
		id:      id,
		handler: handler,
	})

	return &subscription{bus: b, topic: topic, id: id}
}

// Close stops accepting events, drains the buffer and waits for in-flight handlers.
func (b *Bus) Close() error {
	b.closeMu.Lock()
	if b.closed.Swap(true) {
		b.closeMu.Unlock()
		return nil
	}
	close(b.done)
	b.closeMu.Unlock()

	<-b.stopped
	b.wg.Wait()
	return nil
}

var _ Publisher = (*Bus)(nil)
