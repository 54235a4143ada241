package httpapi

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/leeforge/addonstate/addon"
	"github.com/leeforge/addonstate/concurrency"
	"github.com/leeforge/addonstate/controller"
	"github.com/leeforge/addonstate/install"
	"github.com/leeforge/addonstate/manager"
	"github.com/leeforge/addonstate/manager/managertest"
	"github.com/leeforge/addonstate/metrics"
	"github.com/leeforge/addonstate/store"
)

const guid = "@tab-counter"

const descriptor = `{
	"name": "Tab Counter",
	"type": "extension",
	"currentVersion": {
		"version": "2.0.1",
		"files": [{"url": "https://example.org/tab-counter.xpi", "platform": "all"}]
	}
}`

type env struct {
	server   *httptest.Server
	host     *managertest.Fake
	store    *store.MemoryStore
	registry *controller.Registry
}

func newEnv(t *testing.T, runner Runner) *env {
	t.Helper()
	e := &env{host: managertest.New(), store: store.NewMemoryStore()}
	e.registry = controller.NewRegistry(controller.Options{Manager: e.host, Store: e.store})
	e.server = httptest.NewServer(NewRouter(Config{
		Registry: e.registry,
		Runner:   runner,
		Metrics:  metrics.NewHandler(metrics.NewCollector()),
	}))
	t.Cleanup(e.server.Close)
	return e
}

type installResponse struct {
	Data  InstallView `json:"data"`
	Error *Error      `json:"error"`
	Meta  Meta        `json:"meta"`
}

func (e *env) do(t *testing.T, method, path, body string, header map[string]string) (*http.Response, installResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out installResponse
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func (e *env) register(t *testing.T) {
	t.Helper()
	resp, out := e.do(t, http.MethodPut, "/addons/"+guid, descriptor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, guid, out.Data.GUID)
}

func TestRegisterAddon(t *testing.T) {
	e := newEnv(t, nil)
	resp, out := e.do(t, http.MethodPut, "/addons/"+guid, descriptor, map[string]string{"X-Request-Id": "req-7"})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, install.StatusUnknown, out.Data.Status)
	assert.Equal(t, addon.TypeExtension, out.Data.Type)
	assert.Equal(t, "req-7", out.Meta.RequestID)

	_, found := e.registry.Get(guid)
	assert.True(t, found)
}

func TestRegisterAddon_Invalid(t *testing.T) {
	e := newEnv(t, nil)

	resp, out := e.do(t, http.MethodPut, "/addons/"+guid, `{"type":"plugin"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, out.Error)
	assert.Equal(t, "validation", out.Error.Code)

	resp, _ = e.do(t, http.MethodPut, "/addons/"+guid, `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnknownAddonIsNotFound(t *testing.T) {
	e := newEnv(t, nil)
	resp, out := e.do(t, http.MethodGet, "/installs/@missing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, out.Error)
	assert.Equal(t, "not_found", out.Error.Code)
}

func TestRefreshStatus(t *testing.T) {
	e := newEnv(t, nil)
	e.register(t)
	e.host.SetAddon(&manager.ClientAddon{ID: guid, Version: "2.0.1", IsActive: true, IsEnabled: true, CanUninstall: true})

	resp, out := e.do(t, http.MethodPost, "/installs/"+guid+"/status", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, install.StatusEnabled, out.Data.Status)
	assert.True(t, out.Data.Uninstallable())
	assert.False(t, out.Data.Busy)
}

func TestInstallInline(t *testing.T) {
	e := newEnv(t, nil)
	e.register(t)
	e.host.InstallFn = managertest.Download(e.host, []int64{50}, 100, nil)

	resp, out := e.do(t, http.MethodPost, "/installs/"+guid+"/install", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, install.StatusInstalling, out.Data.Status)
	assert.True(t, out.Data.Busy)
	assert.Equal(t, 1, e.host.CallCount("Install"))
}

func TestInstallInBackground(t *testing.T) {
	pool := concurrency.NewWorkerPool(1, 4, nil)
	pool.Start()
	t.Cleanup(func() { _ = pool.Stop(context.Background()) })

	e := newEnv(t, pool)
	e.register(t)

	release := make(chan struct{})
	e.host.InstallFn = func(ctx context.Context, url string, onProgress manager.ProgressFunc) error {
		<-release
		return errors.New("network down")
	}

	resp, _ := e.do(t, http.MethodPost, "/installs/"+guid+"/install", "", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	close(release)

	require.Eventually(t, func() bool {
		rec, err := e.store.Get(context.Background(), guid)
		return err == nil && rec.Status == install.StatusError
	}, time.Second, 5*time.Millisecond)

	_, out := e.do(t, http.MethodGet, "/installs/"+guid+"?lang=de", "", nil)
	assert.Equal(t, install.ErrFatalInstall, out.Data.Error)
	assert.Equal(t, install.ErrFatalInstall.Message(mustTag(t, "de")), out.Data.ErrorMessage)
	assert.NotEqual(t, install.ErrFatalInstall.Message(mustTag(t, "en")), out.Data.ErrorMessage)
}

func TestInstallQueueFull(t *testing.T) {
	pool := concurrency.NewWorkerPool(1, 1, nil)
	require.NoError(t, pool.Stop(context.Background()))

	e := newEnv(t, pool)
	e.register(t)

	resp, out := e.do(t, http.MethodPost, "/installs/"+guid+"/install", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.NotNil(t, out.Error)
}

func TestEnableAndUninstall(t *testing.T) {
	e := newEnv(t, nil)
	e.register(t)
	e.host.SetAddon(&manager.ClientAddon{ID: guid, IsActive: false, IsEnabled: false, CanUninstall: true})

	resp, _ := e.do(t, http.MethodPost, "/installs/"+guid+"/enable", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, e.host.CallCount("Enable"))

	resp, out := e.do(t, http.MethodPost, "/installs/"+guid+"/uninstall", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, install.StatusUninstalling, out.Data.Status)
}

func TestUninstallFailureShowsLocalizedError(t *testing.T) {
	e := newEnv(t, nil)
	e.register(t)
	e.host.UninstallFn = func(context.Context, string) error { return errors.New("locked") }

	_, out := e.do(t, http.MethodPost, "/installs/"+guid+"/uninstall", "", map[string]string{"Accept-Language": "fr-CH, fr;q=0.9"})
	assert.Equal(t, install.StatusError, out.Data.Status)
	assert.Equal(t, install.ErrFatalUninstall.Message(mustTag(t, "fr")), out.Data.ErrorMessage)

	_, out = e.do(t, http.MethodPost, "/installs/"+guid+"/dismiss", "", nil)
	assert.Equal(t, install.StatusUninstalled, out.Data.Status)
	assert.Empty(t, out.Data.ErrorMessage)
}

func TestLifecycleEvent(t *testing.T) {
	e := newEnv(t, nil)
	e.register(t)

	resp, out := e.do(t, http.MethodPost, "/installs/"+guid+"/events", `{"name":"onDisabled"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, install.StatusDisabled, out.Data.Status)

	resp, out = e.do(t, http.MethodPost, "/installs/"+guid+"/events", `{"name":"onExploded"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, out.Error)
}

func TestListInstalls(t *testing.T) {
	e := newEnv(t, nil)
	e.register(t)

	req, err := http.NewRequest(http.MethodGet, e.server.URL+"/installs", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out struct {
		Data []InstallView `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Data, 1)
	assert.Equal(t, guid, out.Data[0].GUID)
}

func TestMetricsAndHealth(t *testing.T) {
	e := newEnv(t, nil)

	resp, err := http.Get(e.server.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(e.server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	e := newEnv(t, nil)
	e.register(t)
	resp, out := e.do(t, http.MethodDelete, "/installs/"+guid+"/install", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	require.NotNil(t, out.Error)
}

func mustTag(t *testing.T, s string) language.Tag {
	t.Helper()
	tag, err := language.Parse(s)
	require.NoError(t, err)
	return tag
}

func TestTiming_ObservesRoutePattern(t *testing.T) {
	collector := metrics.NewCollector()
	host := managertest.New()
	registry := controller.NewRegistry(controller.Options{Manager: host, Store: store.NewMemoryStore()})
	_, err := registry.Register(addon.Addon{
		GUID: guid,
		Name: "Tab Counter",
		Type: addon.TypeExtension,
		Current: &addon.Version{
			Version: "2.0.1",
			Files:   []addon.File{{URL: "https://example.org/tab-counter.xpi", Platform: addon.PlatformAll}},
		},
	})
	require.NoError(t, err)

	var seen time.Time
	router := NewRouter(Config{Registry: registry, Observer: collector})
	router.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		seen, _ = RequestStart(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/installs/"+guid, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	labels := map[string]string{"method": http.MethodGet, "route": "/installs/{guid}/", "status": "200"}
	m := collector.GetMetric(MetricRequestDuration, labels)
	require.NotNil(t, m)
	assert.Equal(t, metrics.TypeHistogram, m.Type)
	assert.Len(t, m.History, 1)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.False(t, seen.IsZero())
	assert.NotNil(t, collector.GetMetric(MetricRequestDuration,
		map[string]string{"method": http.MethodGet, "route": "/ping", "status": "204"}))
}
