package manager

import (
	"context"
	"errors"
	"strings"

	"github.com/leeforge/addonstate/install"
)

var (
	// ErrAddonNotFound is returned by GetAddon when the host does not know the guid.
	ErrAddonNotFound = errors.New("add-on not found")

	// ErrSetEnableNotAvailable is returned by Enable on hosts that cannot enable add-ons.
	ErrSetEnableNotAvailable = errors.New(SetEnableNotAvailable)
)

// SetEnableNotAvailable is the message hosts use when enabling is unsupported.
const SetEnableNotAvailable = "SET_ENABLE_NOT_AVAILABLE"

// ClientAddon is the host's view of an installed add-on.
type ClientAddon struct {
	ID           string
	Name         string
	Version      string
	Type         string
	IsActive     bool
	IsEnabled    bool
	CanUninstall bool
}

// InstallOptions are passed through to the host install call.
type InstallOptions struct {
	Hash string
}

// InstallSnapshot is the state of the host install object at callback time.
type InstallSnapshot struct {
	State       string
	Progress    int64
	MaxProgress int64
}

// EventTarget carries the failure code of a host event.
type EventTarget struct {
	Error string
}

// HostEvent is a progress or lifecycle callback from the host install object.
type HostEvent struct {
	Type   string
	Target *EventTarget
}

// ProgressFunc receives install callbacks. It may be called from any goroutine
// and may race with the return of Install.
type ProgressFunc func(snapshot InstallSnapshot, event HostEvent)

// AddonManager is the host-provided add-on management service.
type AddonManager interface {
	// HasAddonManager reports whether the host exposes the service at all.
	HasAddonManager() bool
	// GetAddon returns ErrAddonNotFound when the guid is unknown.
	GetAddon(ctx context.Context, guid string) (*ClientAddon, error)
	Install(ctx context.Context, url string, onProgress ProgressFunc, opts InstallOptions) error
	// Enable may return ErrSetEnableNotAvailable.
	Enable(ctx context.Context, guid string) error
	Uninstall(ctx context.Context, guid string) error
}

// StatusFor maps the host's view of an add-on onto an install status.
func StatusFor(a *ClientAddon) install.Status {
	switch {
	case a == nil:
		return install.StatusUnknown
	case a.IsActive && a.IsEnabled:
		return install.StatusEnabled
	case a.IsEnabled:
		return install.StatusInactive
	default:
		return install.StatusDisabled
	}
}

// IsSetEnableNotAvailable recognizes the benign "cannot enable" failure,
// whether it is the sentinel or an error carrying the same message.
func IsSetEnableNotAvailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSetEnableNotAvailable) {
		return true
	}
	return strings.TrimSpace(err.Error()) == SetEnableNotAvailable
}

// IsNotFound recognizes a lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAddonNotFound)
}
