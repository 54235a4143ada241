package controller

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/leeforge/addonstate/addon"
	"github.com/leeforge/addonstate/manager"
)

// Registry keeps one Controller per add-on guid, all sharing the same
// host, store, tracker and platform.
type Registry struct {
	base Options

	mu          sync.RWMutex
	controllers map[string]*Controller
}

// NewRegistry creates a Registry. base.Addon is ignored.
func NewRegistry(base Options) *Registry {
	if base.Logger == nil {
		base.Logger = zap.NewNop()
	}
	return &Registry{base: base, controllers: make(map[string]*Controller)}
}

// Register builds a controller for a, replacing any controller for the
// same guid. The stored record is kept.
func (r *Registry) Register(a addon.Addon) (*Controller, error) {
	opts := r.base
	opts.Addon = a
	c, err := New(opts)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.controllers[a.GUID] = c
	r.mu.Unlock()
	return c, nil
}

// Get returns the controller for guid.
func (r *Registry) Get(guid string) (*Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.controllers[guid]
	return c, ok
}

// Remove forgets the controller for guid.
func (r *Registry) Remove(guid string) {
	r.mu.Lock()
	delete(r.controllers, guid)
	r.mu.Unlock()
}

// GUIDs returns the registered guids in order.
func (r *Registry) GUIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	guids := make([]string, 0, len(r.controllers))
	for guid := range r.controllers {
		guids = append(guids, guid)
	}
	sort.Strings(guids)
	return guids
}

// Dispatch routes a host event to the controller of the add-on it names.
// Events for unregistered add-ons are dropped.
func (r *Registry) Dispatch(ctx context.Context, ev manager.LifecycleEvent) error {
	c, ok := r.Get(ev.GUID)
	if !ok {
		r.base.Logger.Debug("host event for unregistered add-on",
			zap.String("guid", ev.GUID), zap.String("event", ev.Name))
		return nil
	}
	return c.HandleLifecycleEvent(ctx, ev.Name)
}

// refreshLimit bounds concurrent host lookups in RefreshAll.
const refreshLimit = 8

// RefreshAll refreshes every registered record from the host and returns
// the first store failure. Every record is refreshed even after a failure.
func (r *Registry) RefreshAll(ctx context.Context) error {
	r.mu.RLock()
	controllers := make([]*Controller, 0, len(r.controllers))
	for _, c := range r.controllers {
		controllers = append(controllers, c)
	}
	r.mu.RUnlock()

	var g errgroup.Group
	g.SetLimit(refreshLimit)
	for _, c := range controllers {
		c := c
		g.Go(func() error {
			return c.SetCurrentStatus(ctx)
		})
	}
	return g.Wait()
}
