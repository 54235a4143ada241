package controller

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leeforge/addonstate/addon"
	"github.com/leeforge/addonstate/install"
	"github.com/leeforge/addonstate/manager/managertest"
	"github.com/leeforge/addonstate/store"
	"github.com/leeforge/addonstate/tracking"
)

// recordingStore remembers every record it produced, in order.
type recordingStore struct {
	*store.MemoryStore
	mu      sync.Mutex
	history []install.Record
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: store.NewMemoryStore()}
}

func (s *recordingStore) Apply(ctx context.Context, guid string, ev install.Event) (install.Record, error) {
	rec, err := s.MemoryStore.Apply(ctx, guid, ev)
	if err == nil {
		s.mu.Lock()
		s.history = append(s.history, rec)
		s.mu.Unlock()
	}
	return rec, err
}

func (s *recordingStore) statuses() []install.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]install.Status, 0, len(s.history))
	for _, rec := range s.history {
		out = append(out, rec.Status)
	}
	return out
}

func (s *recordingStore) records() []install.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]install.Record{}, s.history...)
}

type recordingTracker struct {
	mu     sync.Mutex
	events []tracking.Event
}

func (t *recordingTracker) Track(_ context.Context, e tracking.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
}

func (t *recordingTracker) categories() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.events))
	for _, e := range t.events {
		out = append(out, e.Category)
	}
	return out
}

const testGUID = "@tab-counter"

func extension() addon.Addon {
	return addon.Addon{
		GUID: testGUID,
		Name: "Tab Counter",
		Type: addon.TypeExtension,
		Current: &addon.Version{
			Version: "2.0.1",
			Files: []addon.File{
				{URL: "https://example.org/tab-counter.xpi", Hash: "sha256:abc", Platform: addon.PlatformAll},
			},
		},
	}
}

func staticTheme() addon.Addon {
	a := extension()
	a.GUID = "@night-sky"
	a.Name = "Night Sky"
	a.Type = addon.TypeStaticTheme
	return a
}

type fixture struct {
	ctrl    *Controller
	host    *managertest.Fake
	store   *recordingStore
	tracker *recordingTracker
}

func newFixture(t *testing.T, a addon.Addon) *fixture {
	t.Helper()
	f := &fixture{
		host:    managertest.New(),
		store:   newRecordingStore(),
		tracker: &recordingTracker{},
	}
	ctrl, err := New(Options{
		Addon:   a,
		Manager: f.host,
		Store:   f.store,
		Tracker: f.tracker,
		Logger:  zap.NewNop(),
	})
	require.NoError(t, err)
	f.ctrl = ctrl
	return f
}

func (f *fixture) record(t *testing.T) install.Record {
	t.Helper()
	rec, err := f.ctrl.Record(context.Background())
	require.NoError(t, err)
	return rec
}
