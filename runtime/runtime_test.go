package runtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leeforge/addonstate/addon"
	"github.com/leeforge/addonstate/bus"
	"github.com/leeforge/addonstate/config"
	apperrors "github.com/leeforge/addonstate/errors"
	"github.com/leeforge/addonstate/install"
	"github.com/leeforge/addonstate/manager"
	"github.com/leeforge/addonstate/manager/managertest"
	"github.com/leeforge/addonstate/metrics"
	"github.com/leeforge/addonstate/tracking"
)

const testGUID = "@tab-counter"

func extension() addon.Addon {
	return addon.Addon{
		GUID: testGUID,
		Name: "Tab Counter",
		Type: addon.TypeExtension,
		Current: &addon.Version{
			Version: "2.0.1",
			Files:   []addon.File{{URL: "https://example.org/tab-counter.xpi", Platform: addon.PlatformAll}},
		},
	}
}

func testConfig() *config.AppConfig {
	cfg := config.Default()
	cfg.HTTP.Enabled = false
	cfg.Logging.LogInTerminal = false
	return cfg
}

func newRuntime(t *testing.T, host *managertest.Fake, sinks ...tracking.Sink) *Runtime {
	t.Helper()
	rt, err := New(context.Background(), Config{
		App:    testConfig(),
		Host:   host,
		Logger: zap.NewNop(),
		Sinks:  sinks,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Shutdown(context.Background()) })
	return rt
}

func TestNew_RequiresHost(t *testing.T) {
	_, err := New(context.Background(), Config{App: testConfig()})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeInternal, apperrors.TypeOf(err))
}

func TestNew_DefaultsWithoutAppConfig(t *testing.T) {
	rt, err := New(context.Background(), Config{Host: managertest.New(), Logger: zap.NewNop()})
	require.NoError(t, err)
	defer rt.Shutdown(context.Background())

	assert.NotNil(t, rt.Store())
	assert.NotNil(t, rt.Registry())
	assert.NotNil(t, rt.Logger())
}

func TestStart_RefreshesRegisteredAddons(t *testing.T) {
	host := managertest.New()
	host.SetAddon(&manager.ClientAddon{ID: testGUID, IsActive: true, IsEnabled: true})
	rt := newRuntime(t, host)

	_, err := rt.Registry().Register(extension())
	require.NoError(t, err)

	errc, err := rt.Start(context.Background())
	require.NoError(t, err)
	_, open := <-errc
	assert.False(t, open)

	rec, err := rt.Store().Get(context.Background(), testGUID)
	require.NoError(t, err)
	assert.Equal(t, install.StatusEnabled, rec.Status)

	labels := map[string]string{"status": install.StatusEnabled.String()}
	assert.Eventually(t, func() bool {
		return rt.Metrics().Value(metrics.MetricInstalls, labels) == 1
	}, time.Second, 10*time.Millisecond)
}

type recordingSink struct {
	mu     sync.Mutex
	events []tracking.Event
}

func (s *recordingSink) Send(_ context.Context, e tracking.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Category)
	}
	return out
}

func TestUninstall_TracksThroughSinksAndBus(t *testing.T) {
	host := managertest.New()
	host.SetAddon(&manager.ClientAddon{ID: testGUID, IsActive: true, IsEnabled: true, CanUninstall: true})
	sink := &recordingSink{}
	rt := newRuntime(t, host, sink)

	published := make(chan bus.Event, 1)
	rt.Bus().Subscribe(tracking.TopicTracked, func(_ context.Context, e bus.Event) error {
		published <- e
		return nil
	})

	ctrl, err := rt.Registry().Register(extension())
	require.NoError(t, err)
	require.NoError(t, ctrl.Uninstall(context.Background()))

	select {
	case e := <-published:
		ev, ok := e.Data.(tracking.Event)
		require.True(t, ok)
		assert.Equal(t, "AMO Addon Uninstalls", ev.Category)
		assert.Equal(t, testGUID, ev.Label)
	case <-time.After(2 * time.Second):
		t.Fatal("tracking event not published")
	}
	assert.Eventually(t, func() bool {
		return len(sink.categories()) == 1
	}, time.Second, 10*time.Millisecond)

	rec, err := rt.Store().Get(context.Background(), testGUID)
	require.NoError(t, err)
	assert.Equal(t, install.StatusUninstalling, rec.Status)
}

func TestHandler_ServesHealth(t *testing.T) {
	rt := newRuntime(t, managertest.New())

	rr := httptest.NewRecorder()
	rt.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestShutdown_Idempotent(t *testing.T) {
	rt, err := New(context.Background(), Config{App: testConfig(), Host: managertest.New(), Logger: zap.NewNop()})
	require.NoError(t, err)

	require.NoError(t, rt.Shutdown(context.Background()))
	assert.NoError(t, rt.Shutdown(context.Background()))
}

func TestNew_RedisBackendUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Backend = config.BackendRedis
	cfg.Redis.Host = "127.0.0.1"
	cfg.Redis.Port = "1"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := New(ctx, Config{App: cfg, Host: managertest.New(), Logger: zap.NewNop()})
	assert.Error(t, err)
}
