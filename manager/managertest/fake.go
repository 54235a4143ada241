// Package managertest provides a scriptable in-memory AddonManager for tests.
package managertest

import (
	"context"
	"sync"

	"github.com/leeforge/addonstate/manager"
)

// Call records one invocation on the fake.
type Call struct {
	Method string
	Arg    string
	Opts   manager.InstallOptions
}

// Fake is an AddonManager whose responses are set per method.
// The zero value behaves as a host with no add-ons installed.
type Fake struct {
	mu sync.Mutex

	NoManager bool
	Addons    map[string]*manager.ClientAddon

	// GetAddonFn overrides the Addons lookup when set.
	GetAddonFn func(ctx context.Context, guid string) (*manager.ClientAddon, error)
	// InstallFn receives the progress callback and decides the result.
	InstallFn   func(ctx context.Context, url string, onProgress manager.ProgressFunc) error
	EnableErr   error
	EnableFn    func(ctx context.Context, guid string) error
	UninstallFn func(ctx context.Context, guid string) error

	calls []Call
}

// New returns a Fake with an empty add-on table.
func New() *Fake {
	return &Fake{Addons: make(map[string]*manager.ClientAddon)}
}

func (f *Fake) record(c Call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

// Calls returns a copy of the recorded invocations.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call{}, f.calls...)
}

// CallCount counts invocations of method.
func (f *Fake) CallCount(method string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// SetAddon replaces the host's view of an add-on.
func (f *Fake) SetAddon(a *manager.ClientAddon) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Addons == nil {
		f.Addons = make(map[string]*manager.ClientAddon)
	}
	f.Addons[a.ID] = a
}

func (f *Fake) HasAddonManager() bool {
	return !f.NoManager
}

func (f *Fake) GetAddon(ctx context.Context, guid string) (*manager.ClientAddon, error) {
	f.record(Call{Method: "GetAddon", Arg: guid})
	if f.GetAddonFn != nil {
		return f.GetAddonFn(ctx, guid)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.Addons[guid]
	if !ok {
		return nil, manager.ErrAddonNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *Fake) Install(ctx context.Context, url string, onProgress manager.ProgressFunc, opts manager.InstallOptions) error {
	f.record(Call{Method: "Install", Arg: url, Opts: opts})
	if f.InstallFn != nil {
		return f.InstallFn(ctx, url, onProgress)
	}
	return nil
}

func (f *Fake) Enable(ctx context.Context, guid string) error {
	f.record(Call{Method: "Enable", Arg: guid})
	if f.EnableFn != nil {
		if err := f.EnableFn(ctx, guid); err != nil {
			return err
		}
	}
	if f.EnableErr != nil {
		return f.EnableErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.Addons[guid]; ok {
		a.IsEnabled = true
		a.IsActive = true
	}
	return nil
}

func (f *Fake) Uninstall(ctx context.Context, guid string) error {
	f.record(Call{Method: "Uninstall", Arg: guid})
	if f.UninstallFn != nil {
		return f.UninstallFn(ctx, guid)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Addons, guid)
	return nil
}

// Download returns an InstallFn that reports byte progress in steps and then
// finishes the download, optionally registering the installed add-on.
func Download(f *Fake, steps []int64, max int64, installed *manager.ClientAddon) func(context.Context, string, manager.ProgressFunc) error {
	return func(_ context.Context, _ string, onProgress manager.ProgressFunc) error {
		for _, s := range steps {
			onProgress(manager.InstallSnapshot{State: manager.StateDownloading, Progress: s, MaxProgress: max},
				manager.HostEvent{Type: manager.OnDownloadProgress})
		}
		onProgress(manager.InstallSnapshot{State: manager.StateDownloaded, Progress: max, MaxProgress: max},
			manager.HostEvent{Type: manager.OnDownloadEnded})
		if installed != nil {
			f.SetAddon(installed)
		}
		return nil
	}
}

var _ manager.AddonManager = (*Fake)(nil)
