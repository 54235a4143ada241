package httpapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/leeforge/addonstate/addon"
	"github.com/leeforge/addonstate/concurrency"
	"github.com/leeforge/addonstate/controller"
	apperrors "github.com/leeforge/addonstate/errors"
	"github.com/leeforge/addonstate/install"
	"github.com/leeforge/addonstate/logging"
	"github.com/leeforge/addonstate/manager"
)

// InstallView is the API representation of a record.
type InstallView struct {
	install.Record
	Type         addon.Type `json:"type"`
	Busy         bool       `json:"busy"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
}

type ctrlKey struct{}

func controllerFrom(ctx context.Context) *controller.Controller {
	c, _ := ctx.Value(ctrlKey{}).(*controller.Controller)
	return c
}

func (a *api) withController(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		guid := guidParam(r)
		c, found := a.registry.Get(guid)
		if !found {
			fail(w, r, apperrors.NewNotFound("add-on", guid))
			return
		}
		ctx := logging.SetGUID(r.Context(), guid)
		ctx = logging.ToContext(ctx, logging.FromContext(r.Context()).With(zap.String("guid", guid)))
		ctx = context.WithValue(ctx, ctrlKey{}, c)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// guidParam returns the unescaped guid path segment. Guids may contain
// braces, which clients percent-encode.
func guidParam(r *http.Request) string {
	raw := chi.URLParam(r, "guid")
	if guid, err := url.PathUnescape(raw); err == nil {
		return guid
	}
	return raw
}

// requestLanguage prefers ?lang=, then Accept-Language, then English.
func requestLanguage(r *http.Request) language.Tag {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		if tag, err := language.Parse(lang); err == nil {
			return tag
		}
	}
	if tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language")); err == nil && len(tags) > 0 {
		return tags[0]
	}
	return language.English
}

func view(ctx context.Context, c *controller.Controller, tag language.Tag) (InstallView, error) {
	rec, err := c.Record(ctx)
	if err != nil {
		return InstallView{}, apperrors.NewStorage("reading install record", err)
	}
	return InstallView{
		Record:       rec,
		Type:         c.Addon().Type,
		Busy:         rec.Status.IsBusy(c.Addon().IsStaticTheme()),
		ErrorMessage: rec.Error.Message(tag),
	}, nil
}

func (a *api) respondRecord(w http.ResponseWriter, r *http.Request, c *controller.Controller) {
	v, err := view(r.Context(), c, requestLanguage(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, r, v)
}

func (a *api) registerAddon(w http.ResponseWriter, r *http.Request) {
	var desc addon.Addon
	if err := decode(r, &desc); err != nil {
		fail(w, r, err)
		return
	}
	desc.GUID = guidParam(r)

	c, err := a.registry.Register(desc)
	if err != nil {
		fail(w, r, apperrors.Wrap(err, apperrors.ErrorTypeValidation, "invalid add-on descriptor").
			WithDetail("reason", err.Error()))
		return
	}
	a.respondRecord(w, r, c)
}

func (a *api) listInstalls(w http.ResponseWriter, r *http.Request) {
	tag := requestLanguage(r)
	guids := a.registry.GUIDs()
	views := make([]InstallView, 0, len(guids))
	for _, guid := range guids {
		c, found := a.registry.Get(guid)
		if !found {
			continue
		}
		v, err := view(r.Context(), c, tag)
		if err != nil {
			fail(w, r, err)
			return
		}
		views = append(views, v)
	}
	ok(w, r, views)
}

func (a *api) getInstall(w http.ResponseWriter, r *http.Request) {
	a.respondRecord(w, r, controllerFrom(r.Context()))
}

// operation runs a synchronous controller call and replies with the record.
func (a *api) operation(fn func(context.Context, *controller.Controller) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := controllerFrom(r.Context())
		if err := fn(r.Context(), c); err != nil {
			fail(w, r, apperrors.NewStorage("applying install transition", err))
			return
		}
		a.respondRecord(w, r, c)
	}
}

func (a *api) refreshStatus(w http.ResponseWriter, r *http.Request) {
	a.operation(func(ctx context.Context, c *controller.Controller) error {
		return c.SetCurrentStatus(ctx)
	})(w, r)
}

func (a *api) dismissError(w http.ResponseWriter, r *http.Request) {
	a.operation(func(ctx context.Context, c *controller.Controller) error {
		return c.DismissError(ctx)
	})(w, r)
}

func (a *api) enable(w http.ResponseWriter, r *http.Request) {
	a.operation(func(ctx context.Context, c *controller.Controller) error {
		return c.Enable(ctx)
	})(w, r)
}

func (a *api) uninstall(w http.ResponseWriter, r *http.Request) {
	a.operation(func(ctx context.Context, c *controller.Controller) error {
		return c.Uninstall(ctx)
	})(w, r)
}

// install runs in the background when a Runner is configured; callers poll
// the record for progress.
func (a *api) install(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	if a.runner == nil {
		a.operation(func(ctx context.Context, c *controller.Controller) error {
			return c.Install(ctx)
		})(w, r)
		return
	}

	logger := logging.FromContext(r.Context())
	job := concurrency.JobFunc(func(ctx context.Context) error {
		if err := c.Install(ctx); err != nil {
			logger.Error("background install failed", zap.Error(err))
			return err
		}
		return nil
	})
	if err := a.runner.Submit(job); err != nil {
		fail(w, r, apperrors.Wrap(err, apperrors.ErrorTypeUnavailable, "install queue unavailable"))
		return
	}

	v, err := view(r.Context(), c, requestLanguage(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	accepted(w, r, v)
}

type lifecycleRequest struct {
	Name string `json:"name"`
}

func (a *api) lifecycleEvent(w http.ResponseWriter, r *http.Request) {
	var req lifecycleRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if _, known := manager.StatusForGlobalEvent(req.Name); !known {
		fail(w, r, apperrors.NewValidation("unknown lifecycle event").WithDetail("name", req.Name))
		return
	}

	c := controllerFrom(r.Context())
	ev := manager.LifecycleEvent{Name: req.Name, GUID: c.Addon().GUID}
	if err := a.registry.Dispatch(r.Context(), ev); err != nil {
		fail(w, r, apperrors.NewStorage("applying lifecycle event", err))
		return
	}
	a.respondRecord(w, r, c)
}
