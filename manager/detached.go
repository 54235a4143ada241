package manager

import (
	"context"
	"errors"
)

// ErrNoAddonManager is returned by Detached for every host operation.
var ErrNoAddonManager = errors.New("no add-on manager attached")

// Detached is the host of a process with no client attached. Records only
// move through lifecycle events delivered from outside.
type Detached struct{}

func (Detached) HasAddonManager() bool { return false }

func (Detached) GetAddon(context.Context, string) (*ClientAddon, error) {
	return nil, ErrAddonNotFound
}

func (Detached) Install(context.Context, string, ProgressFunc, InstallOptions) error {
	return ErrNoAddonManager
}

func (Detached) Enable(context.Context, string) error { return ErrNoAddonManager }

func (Detached) Uninstall(context.Context, string) error { return ErrNoAddonManager }

var _ AddonManager = Detached{}
