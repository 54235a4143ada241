package tracking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/leeforge/addonstate/addon"
)

func TestCategory(t *testing.T) {
	tests := []struct {
		typ    addon.Type
		action Action
		want   string
	}{
		{addon.TypeExtension, ActionInstall, "AMO Addon Installs"},
		{addon.TypeStaticTheme, ActionInstall, "AMO Theme Installs"},
		{addon.TypeDictionary, ActionUninstall, "AMO Addon Uninstalls"},
		{addon.TypeStaticTheme, ActionEnable, "AMO Theme Activates"},
		{addon.TypeExtension, ActionInstallStarted, "AMO Addon Installs Started"},
		{addon.TypeExtension, ActionDownloadFailed, "AMO Addon Downloads Failed"},
		{addon.TypeStaticTheme, ActionDownloadFailed, "AMO Theme Downloads Failed"},
		{addon.TypeExtension, Action("bogus"), "AMO Unknown"},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ)+"/"+string(tt.action), func(t *testing.T) {
			assert.Equal(t, tt.want, Category(tt.typ, tt.action))
		})
	}
}

func TestNewEvent_LabelIsGUID(t *testing.T) {
	e := NewEvent(addon.Addon{GUID: "@x", Name: "X", Type: addon.TypeStaticTheme}, ActionInstall)
	assert.Equal(t, "@x", e.Label)
	assert.Equal(t, "statictheme", e.Action)
	assert.Equal(t, "AMO Theme Installs", e.Category)
	assert.NotEmpty(t, e.ID)
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := NewLogSink(zap.New(core))

	require.NoError(t, s.Send(context.Background(), Event{Category: "c", Label: "l"}))
	entries := logs.FilterMessage("tracking event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "l", entries[0].ContextMap()["label"])
}

func TestAsyncTracker_DeliversAndSurvivesFailures(t *testing.T) {
	var mu sync.Mutex
	var got []string
	sink := SinkFunc(func(ctx context.Context, e Event) error {
		if e.Label == "bad" {
			return errors.New("collector down")
		}
		mu.Lock()
		got = append(got, e.Label)
		mu.Unlock()
		return nil
	})

	tr := NewAsyncTracker(sink, AsyncOptions{Workers: 2, QueueSize: 10})
	tr.Track(context.Background(), Event{Label: "a"})
	tr.Track(context.Background(), Event{Label: "bad"})
	tr.Track(context.Background(), Event{Label: "b"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, tr.Close(ctx))

	assert.ElementsMatch(t, []string{"a", "b"}, got)
	sent, failed := tr.Stats()
	assert.Equal(t, int64(2), sent)
	assert.Equal(t, int64(1), failed)
}

func TestAsyncTracker_TrackAfterCloseDoesNotPanic(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	tr := NewAsyncTracker(SinkFunc(func(context.Context, Event) error { return nil }),
		AsyncOptions{Logger: zap.New(core)})
	require.NoError(t, tr.Close(context.Background()))

	tr.Track(context.Background(), Event{Label: "late"})
	assert.Equal(t, 1, logs.FilterMessage("tracking event dropped").Len())
}
