// Package httpapi exposes install records and lifecycle operations over HTTP.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/leeforge/addonstate/addon"
	"github.com/leeforge/addonstate/concurrency"
	"github.com/leeforge/addonstate/controller"
	apperrors "github.com/leeforge/addonstate/errors"
	"github.com/leeforge/addonstate/logging"
	"github.com/leeforge/addonstate/manager"
)

// Registry resolves controllers by add-on guid.
type Registry interface {
	Register(a addon.Addon) (*controller.Controller, error)
	Get(guid string) (*controller.Controller, bool)
	GUIDs() []string
	Dispatch(ctx context.Context, ev manager.LifecycleEvent) error
}

// Runner executes long operations off the request goroutine.
type Runner interface {
	Submit(job concurrency.Job) error
}

// Config holds the dependencies of the API.
type Config struct {
	Registry Registry

	// Runner runs installs in the background. Nil runs them inline.
	Runner Runner

	// Observer records request latency when set.
	Observer Observer

	Metrics http.Handler // served at /metrics when set
	Logger  *zap.Logger
}

type api struct {
	registry Registry
	runner   Runner
	logger   *zap.Logger
}

// NewRouter builds the API router.
func NewRouter(cfg Config) chi.Router {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	a := &api{registry: cfg.Registry, runner: cfg.Runner, logger: cfg.Logger.Named("http")}

	r := chi.NewRouter()
	r.Use(middleware.CleanPath)
	r.Use(timing(cfg.Observer))
	r.Use(logging.HTTPMiddleware(a.logger))
	r.Use(logging.RecoveryMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		fail(w, r, apperrors.New(apperrors.ErrorTypeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusMethodNotAllowed, Response{Error: &Error{
			Code: "method_not_allowed", Message: http.StatusText(http.StatusMethodNotAllowed),
		}})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ok(w, r, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.With(middleware.AllowContentType("application/json")).Put("/addons/{guid}", a.registerAddon)

	r.Route("/installs", func(r chi.Router) {
		r.Get("/", a.listInstalls)
		r.Route("/{guid}", func(r chi.Router) {
			r.Use(a.withController)
			r.Get("/", a.getInstall)
			r.Post("/status", a.refreshStatus)
			r.Post("/dismiss", a.dismissError)
			r.Post("/install", a.install)
			r.Post("/enable", a.enable)
			r.Post("/uninstall", a.uninstall)
			r.With(middleware.AllowContentType("application/json")).Post("/events", a.lifecycleEvent)
		})
	})

	return r
}
