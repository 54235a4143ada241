// Package controller drives the install lifecycle of one add-on against the
// host add-on manager and records the outcome as install transitions.
//
// Host failures never surface as Go errors: they become an ERROR record with
// a kind the UI can render. Operations only return an error when the store
// cannot apply a transition.
package controller

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/leeforge/addonstate/addon"
	apperrors "github.com/leeforge/addonstate/errors"
	"github.com/leeforge/addonstate/install"
	"github.com/leeforge/addonstate/manager"
	"github.com/leeforge/addonstate/store"
	"github.com/leeforge/addonstate/tracking"
)

// Options holds the collaborators of a Controller.
type Options struct {
	Addon    addon.Addon
	Manager  manager.AddonManager
	Store    store.Store
	Tracker  tracking.Tracker // nil disables tracking
	Logger   *zap.Logger
	Platform addon.Platform // client platform used to pick a file
}

// Controller tracks and transitions the install state of one add-on.
// It holds no mutable state; concurrent lifecycle operations on the same
// add-on are the caller's responsibility.
type Controller struct {
	addon    addon.Addon
	manager  manager.AddonManager
	store    store.Store
	tracker  tracking.Tracker
	logger   *zap.Logger
	platform addon.Platform
}

// New validates the add-on descriptor and builds a Controller.
func New(opts Options) (*Controller, error) {
	if err := opts.Addon.Validate(); err != nil {
		return nil, err
	}
	if opts.Manager == nil {
		return nil, apperrors.NewInternal("add-on manager is required").WithDetail("guid", opts.Addon.GUID)
	}
	if opts.Store == nil {
		return nil, apperrors.NewInternal("install store is required").WithDetail("guid", opts.Addon.GUID)
	}
	if opts.Tracker == nil {
		opts.Tracker = tracking.Nop()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Platform == "" {
		opts.Platform = addon.PlatformAll
	}

	logger := opts.Logger.Named("install").With(
		zap.String("guid", opts.Addon.GUID),
		zap.String("type", string(opts.Addon.Type)))

	return &Controller{
		addon:    opts.Addon,
		manager:  opts.Manager,
		store:    opts.Store,
		tracker:  opts.Tracker,
		logger:   logger,
		platform: opts.Platform,
	}, nil
}

// Addon returns the descriptor the controller drives.
func (c *Controller) Addon() addon.Addon {
	return c.addon
}

// Record returns the current install record.
func (c *Controller) Record(ctx context.Context) (install.Record, error) {
	return c.store.Get(ctx, c.addon.GUID)
}

// Busy reports whether a UI should still show a loading state.
func (c *Controller) Busy(ctx context.Context) (bool, error) {
	rec, err := c.Record(ctx)
	if err != nil {
		return false, err
	}
	return rec.Status.IsBusy(c.addon.IsStaticTheme()), nil
}

// SetCurrentStatus refreshes the record from the host. A lookup failure
// means the add-on is not installed; a host crash is FATAL_ERROR.
func (c *Controller) SetCurrentStatus(ctx context.Context) error {
	if !c.manager.HasAddonManager() {
		c.logger.Info("no add-on manager, cannot set add-on status")
		return nil
	}

	var clientAddon *manager.ClientAddon
	err := callHost(func() error {
		var err error
		clientAddon, err = c.manager.GetAddon(ctx, c.addon.GUID)
		return err
	})

	switch {
	case isHostPanic(err):
		c.logger.Error("caught error from add-on manager", zap.Error(err))
		return c.apply(ctx, install.Failed{Kind: install.ErrFatal})

	case err != nil:
		c.logger.Info("add-on not found, setting status to UNINSTALLED", zap.Error(err))
		return c.apply(ctx, install.NotFound{})

	case clientAddon == nil:
		c.logger.Info("add-on manager returned no add-on, setting status to UNINSTALLED")
		return c.apply(ctx, install.NotFound{})
	}

	return c.apply(ctx, install.StatusReported{
		Status:       manager.StatusFor(clientAddon),
		CanUninstall: clientAddon.CanUninstall,
		Version:      clientAddon.Version,
	})
}

// DismissError clears an ERROR record by asking the host again.
func (c *Controller) DismissError(ctx context.Context) error {
	return c.SetCurrentStatus(ctx)
}

// Install downloads and installs the current version. Without a file for
// the client platform it does nothing. Static themes are enabled afterwards
// when the host did not enable them on install.
func (c *Controller) Install(ctx context.Context) error {
	src, ok := c.addon.FindInstallSource(c.platform)
	if !ok {
		c.logger.Debug("no install URL for current version, nothing to install",
			zap.String("platform", string(c.platform)))
		return nil
	}

	if err := c.apply(ctx, install.StartDownload{}); err != nil {
		return err
	}
	c.track(ctx, tracking.ActionInstallStarted)

	attempt := newAttempt()
	err := callHost(func() error {
		return c.manager.Install(ctx, src.URL, c.progressHandler(ctx, attempt), manager.InstallOptions{Hash: src.Hash})
	})

	if err != nil {
		if attempt.settled() {
			// The progress callback already recorded why the attempt ended.
			c.logger.Warn("install rejected after host reported its outcome", zap.Error(err))
			return nil
		}
		c.logger.Error("install error", zap.String("url", src.URL), zap.Error(err))
		return c.apply(ctx, install.Failed{Kind: install.ErrFatalInstall})
	}
	if attempt.settled() {
		return nil
	}

	c.track(ctx, tracking.ActionInstall)

	if c.addon.IsStaticTheme() {
		return c.enableStaticTheme(ctx)
	}
	return nil
}

func (c *Controller) enableStaticTheme(ctx context.Context) error {
	if c.isAddonEnabled(ctx) {
		return nil
	}
	return c.Enable(ctx, WithoutTracking())
}

// isAddonEnabled reports false when the host lookup fails, so a theme the
// host cannot find yet still gets an enable request.
func (c *Controller) isAddonEnabled(ctx context.Context) bool {
	var clientAddon *manager.ClientAddon
	err := callHost(func() error {
		var err error
		clientAddon, err = c.manager.GetAddon(ctx, c.addon.GUID)
		return err
	})
	if err != nil {
		c.logger.Warn("could not check whether add-on is enabled", zap.Error(err))
		return false
	}
	return clientAddon != nil && clientAddon.IsEnabled
}

// EnableOption tweaks Enable.
type EnableOption func(*enableOptions)

type enableOptions struct {
	sendTrackingEvent bool
}

// WithoutTracking suppresses the analytics event of an Enable call.
func WithoutTracking() EnableOption {
	return func(o *enableOptions) { o.sendTrackingEvent = false }
}

// Enable asks the host to enable the add-on. Hosts that cannot enable
// (SET_ENABLE_NOT_AVAILABLE) are not an error and leave the record alone.
func (c *Controller) Enable(ctx context.Context, opts ...EnableOption) error {
	o := enableOptions{sendTrackingEvent: true}
	for _, opt := range opts {
		opt(&o)
	}

	err := callHost(func() error {
		return c.manager.Enable(ctx, c.addon.GUID)
	})
	switch {
	case err == nil:
		if o.sendTrackingEvent {
			c.track(ctx, tracking.ActionEnable)
		}
		return nil

	case manager.IsSetEnableNotAvailable(err):
		c.logger.Info("enabling not available on this host, unable to enable add-on")
		return nil

	default:
		c.logger.Error("error while trying to enable add-on", zap.Error(err))
		return c.apply(ctx, install.Failed{Kind: install.ErrFatal})
	}
}

// Uninstall marks the record UNINSTALLING right away and then asks the
// host. The host confirms through a lifecycle event or a status refresh.
func (c *Controller) Uninstall(ctx context.Context) error {
	if err := c.apply(ctx, install.UninstallRequested{}); err != nil {
		return err
	}

	err := callHost(func() error {
		return c.manager.Uninstall(ctx, c.addon.GUID)
	})
	if err != nil {
		c.logger.Error("uninstall error", zap.Error(err))
		return c.apply(ctx, install.Failed{Kind: install.ErrFatalUninstall})
	}

	c.track(ctx, tracking.ActionUninstall)
	return nil
}

// HandleLifecycleEvent applies a host-wide event such as onEnabled.
// Unknown event names are ignored.
func (c *Controller) HandleLifecycleEvent(ctx context.Context, name string) error {
	status, ok := manager.StatusForGlobalEvent(name)
	if !ok {
		c.logger.Debug("ignoring unknown add-on manager event", zap.String("event", name))
		return nil
	}
	return c.apply(ctx, install.LifecycleChanged{Status: status})
}

func (c *Controller) apply(ctx context.Context, ev install.Event) error {
	rec, err := c.store.Apply(ctx, c.addon.GUID, ev)
	if err != nil {
		c.logger.Error("install transition not applied",
			zap.String("event", ev.Name()), zap.Error(err))
		return fmt.Errorf("apply %s to %q: %w", ev.Name(), c.addon.GUID, err)
	}
	c.logger.Debug("install transition applied",
		zap.String("event", ev.Name()),
		zap.Stringer("status", rec.Status),
		zap.String("error", string(rec.Error)))
	return nil
}

func (c *Controller) track(ctx context.Context, action tracking.Action) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("tracking panicked", zap.Any("panic", r))
		}
	}()
	c.tracker.Track(ctx, tracking.NewEvent(c.addon, action))
}
