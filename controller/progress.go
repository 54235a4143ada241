package controller

import (
	"context"
	"sync/atomic"

	"github.com/leeforge/addonstate/install"
	"github.com/leeforge/addonstate/manager"
	"github.com/leeforge/addonstate/tracking"
)

// attempt remembers whether the host already reported how an install ended.
type attempt struct {
	outcome atomic.Bool
}

func newAttempt() *attempt {
	return &attempt{}
}

func (a *attempt) settle() {
	a.outcome.Store(true)
}

func (a *attempt) settled() bool {
	return a.outcome.Load()
}

// progressHandler turns install callbacks into record events. Callbacks may
// arrive on any goroutine, including after Install has returned.
func (c *Controller) progressHandler(ctx context.Context, at *attempt) manager.ProgressFunc {
	return func(snapshot manager.InstallSnapshot, hostEvent manager.HostEvent) {
		ev, ok := manager.EventFor(snapshot, hostEvent)
		if !ok {
			return
		}

		switch ev.(type) {
		case install.DownloadFailed:
			at.settle()
			c.track(ctx, tracking.ActionDownloadFailed)
		case install.InstallFailed:
			at.settle()
			c.track(ctx, tracking.ActionInstallFailed)
		case install.InstallCancelled:
			at.settle()
			c.track(ctx, tracking.ActionInstallCancelled)
		}

		// apply logs its own failures; a callback has nowhere to return them
		_ = c.apply(ctx, ev)
	}
}
