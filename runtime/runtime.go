// Package runtime wires configuration, storage, notification, tracking and
// the HTTP API around a host add-on manager.
package runtime

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/leeforge/addonstate/bus"
	"github.com/leeforge/addonstate/concurrency"
	"github.com/leeforge/addonstate/config"
	"github.com/leeforge/addonstate/controller"
	apperrors "github.com/leeforge/addonstate/errors"
	"github.com/leeforge/addonstate/httpapi"
	"github.com/leeforge/addonstate/logging"
	"github.com/leeforge/addonstate/manager"
	"github.com/leeforge/addonstate/metrics"
	"github.com/leeforge/addonstate/store"
	"github.com/leeforge/addonstate/tracking"
)

// Config holds what a Runtime is built from.
type Config struct {
	App  *config.AppConfig
	Host manager.AddonManager

	// Logger overrides the logger built from App.Logging.
	Logger *zap.Logger
	// Redis overrides the client built from App.Redis.
	Redis redis.UniversalClient
	// Sinks receive tracking events in addition to the built-in ones.
	Sinks []tracking.Sink
}

// Runtime owns every long-lived component.
type Runtime struct {
	cfg    *config.AppConfig
	logger *zap.Logger

	ownedLogger *logging.Logger
	redis       redis.UniversalClient
	ownsRedis   bool

	bus       *bus.Bus
	store     store.Store
	collector *metrics.Collector
	recorder  bus.Subscription
	tracker   tracking.Tracker
	async     *tracking.AsyncTracker
	installs  *concurrency.WorkerPool
	registry  *controller.Registry
	handler   http.Handler
	server    *http.Server

	shutdownOnce sync.Once
	shutdownErr  error
}

// New builds a Runtime. It connects to Redis when the store backend asks for it.
func New(ctx context.Context, cfg Config) (*Runtime, error) {
	if cfg.App == nil {
		cfg.App = config.Default()
	}
	if cfg.Host == nil {
		return nil, apperrors.NewInternal("runtime: host add-on manager is required")
	}
	app := cfg.App

	r := &Runtime{cfg: app}
	if cfg.Logger != nil {
		r.logger = cfg.Logger
	} else {
		r.ownedLogger = logging.New(app.Logging)
		r.logger = r.ownedLogger.Logger
	}

	r.bus = bus.New(app.Bus.BufferSize, r.logger.Named("bus"))

	backing, err := r.buildStore(ctx, cfg.Redis)
	if err != nil {
		_ = r.bus.Close()
		if r.ownedLogger != nil {
			_ = r.ownedLogger.Close()
		}
		return nil, err
	}
	r.store = store.Notifying(backing, r.bus, r.logger.Named("store"))

	r.collector = metrics.NewCollector()
	r.recorder = metrics.NewRecorder(r.collector, r.logger.Named("metrics")).Attach(r.bus)

	r.tracker = r.buildTracker(cfg.Sinks)

	r.installs = concurrency.NewWorkerPool(app.Controller.InstallWorkers, app.Controller.InstallQueue, func(err error) {
		r.logger.Warn("install job failed", zap.Error(err))
	})
	r.installs.Start()

	r.registry = controller.NewRegistry(controller.Options{
		Manager:  cfg.Host,
		Store:    r.store,
		Tracker:  r.tracker,
		Logger:   r.logger,
		Platform: app.Controller.PlatformValue(),
	})

	r.handler = httpapi.NewRouter(httpapi.Config{
		Registry: r.registry,
		Runner:   r.installs,
		Metrics:  metrics.NewHandler(r.collector),
		Observer: r.collector,
		Logger:   r.logger,
	})

	r.logger.Info("runtime ready",
		zap.String("store", app.Store.Backend),
		zap.Bool("tracking", app.Tracking.Enabled),
		zap.String("platform", app.Controller.Platform))
	return r, nil
}

func (r *Runtime) buildStore(ctx context.Context, client redis.UniversalClient) (store.Store, error) {
	if r.cfg.Store.Backend != config.BackendRedis {
		return store.NewMemoryStore(), nil
	}
	if client == nil {
		c, err := store.NewRedisClient(ctx, r.cfg.Redis, r.logger)
		if err != nil {
			return nil, err
		}
		client = c
		r.ownsRedis = true
	}
	r.redis = client
	return store.NewRedisStore(client, store.RedisOptions{
		Prefix:     r.cfg.Store.Prefix,
		TTL:        r.cfg.Store.TTL,
		MaxRetries: r.cfg.Store.MaxRetries,
		Logger:     r.logger.Named("store"),
	}), nil
}

func (r *Runtime) buildTracker(extra []tracking.Sink) tracking.Tracker {
	tc := r.cfg.Tracking
	if !tc.Enabled {
		return tracking.Nop()
	}

	sinks := tracking.MultiSink{tracking.NewLogSink(r.logger.Named("tracking")), tracking.NewBusSink(r.bus)}
	if r.redis != nil {
		sinks = append(sinks, tracking.NewRedisSink(r.redis, r.cfg.Store.Prefix+":tracking", 10000))
	}
	sinks = append(sinks, extra...)

	if !tc.Async {
		return tracking.SyncTracker{Sink: sinks, Logger: r.logger}
	}
	r.async = tracking.NewAsyncTracker(sinks, tracking.AsyncOptions{
		Workers:   tc.Workers,
		QueueSize: tc.QueueSize,
		Timeout:   tc.Timeout,
		Logger:    r.logger.Named("tracking"),
	})
	return r.async
}

// Registry returns the controller registry.
func (r *Runtime) Registry() *controller.Registry { return r.registry }

// Handler returns the HTTP API.
func (r *Runtime) Handler() http.Handler { return r.handler }

// Bus returns the notification bus.
func (r *Runtime) Bus() *bus.Bus { return r.bus }

// Metrics returns the metrics collector.
func (r *Runtime) Metrics() *metrics.Collector { return r.collector }

// Store returns the notifying record store.
func (r *Runtime) Store() store.Store { return r.store }

// Logger returns the runtime logger.
func (r *Runtime) Logger() *zap.Logger { return r.logger }

// Start refreshes every registered record and, when enabled, starts serving
// the API. Serve errors are reported on the returned channel.
func (r *Runtime) Start(ctx context.Context) (<-chan error, error) {
	if err := r.registry.RefreshAll(ctx); err != nil {
		return nil, err
	}

	errc := make(chan error, 1)
	if !r.cfg.HTTP.Enabled {
		close(errc)
		return errc, nil
	}

	r.server = &http.Server{
		Addr:         r.cfg.HTTP.Addr,
		Handler:      r.handler,
		ReadTimeout:  r.cfg.HTTP.ReadTimeout,
		WriteTimeout: r.cfg.HTTP.WriteTimeout,
	}
	go func() {
		defer close(errc)
		r.logger.Info("http server listening", zap.String("addr", r.cfg.HTTP.Addr))
		if err := r.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("http server stopped", zap.Error(err))
			errc <- err
		}
	}()
	return errc, nil
}

// Shutdown stops accepting requests, lets queued installs and tracking
// events finish, then closes the bus, Redis and log files.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.shutdownOnce.Do(func() {
		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		var errs []error
		if r.server != nil {
			errs = append(errs, r.server.Shutdown(shutdownCtx))
		}
		errs = append(errs, r.installs.Stop(shutdownCtx))
		if r.async != nil {
			errs = append(errs, r.async.Close(shutdownCtx))
		}

		r.recorder.Unsubscribe()
		errs = append(errs, r.bus.Close())

		if r.ownsRedis && r.redis != nil {
			errs = append(errs, r.redis.Close())
		}

		r.logger.Info("shutdown completed")
		if r.ownedLogger != nil {
			_ = r.ownedLogger.Close()
		}
		r.shutdownErr = errors.Join(errs...)
	})
	return r.shutdownErr
}
