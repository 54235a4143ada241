package tracking

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/leeforge/addonstate/concurrency"
)

// LogSink writes events to a zap logger.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(_ context.Context, e Event) error {
	s.logger.Info("tracking event",
		zap.String("id", e.ID),
		zap.String("action", e.Action),
		zap.String("category", e.Category),
		zap.String("label", e.Label))
	return nil
}

// AsyncTracker hands events to a sink on a worker pool. A slow or failing
// sink never blocks or fails the caller; dropped events are logged.
type AsyncTracker struct {
	sink    Sink
	pool    *concurrency.WorkerPool
	timeout time.Duration
	logger  *zap.Logger
}

// AsyncOptions configures an AsyncTracker.
type AsyncOptions struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration // per-send timeout, default 5s
	Logger    *zap.Logger
}

// NewAsyncTracker starts the worker pool.
func NewAsyncTracker(sink Sink, opts AsyncOptions) *AsyncTracker {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	logger := opts.Logger
	pool := concurrency.NewWorkerPool(opts.Workers, opts.QueueSize, func(err error) {
		logger.Warn("tracking event not sent", zap.Error(err))
	})
	pool.Start()

	return &AsyncTracker{
		sink:    sink,
		pool:    pool,
		timeout: opts.Timeout,
		logger:  logger,
	}
}

func (t *AsyncTracker) Track(_ context.Context, e Event) {
	job := concurrency.JobFunc(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, t.timeout)
		defer cancel()
		return t.sink.Send(ctx, e)
	})
	if err := t.pool.Submit(job); err != nil {
		t.logger.Warn("tracking event dropped",
			zap.String("category", e.Category),
			zap.String("label", e.Label),
			zap.Error(err))
	}
}

// Close flushes queued events, waiting at most until ctx is done.
func (t *AsyncTracker) Close(ctx context.Context) error {
	return t.pool.Stop(ctx)
}

// Stats returns how many events were sent and how many failed.
func (t *AsyncTracker) Stats() (sent, failed int64) {
	return t.pool.Stats()
}

// SyncTracker sends inline and logs failures. Mostly useful in tests.
type SyncTracker struct {
	Sink   Sink
	Logger *zap.Logger
}

func (t SyncTracker) Track(ctx context.Context, e Event) {
	if err := t.Sink.Send(ctx, e); err != nil && t.Logger != nil {
		t.Logger.Warn("tracking event not sent", zap.Error(err))
	}
}

var (
	_ Sink    = (*LogSink)(nil)
	_ Tracker = (*AsyncTracker)(nil)
	_ Tracker = SyncTracker{}
)
