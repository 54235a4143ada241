package manager

import "github.com/leeforge/addonstate/install"

// Install object states.
const (
	StateAvailable   = "STATE_AVAILABLE"
	StateDownloading = "STATE_DOWNLOADING"
	StateDownloaded  = "STATE_DOWNLOADED"
	StateInstalling  = "STATE_INSTALLING"
	StateInstalled   = "STATE_INSTALLED"
	StateCancelled   = "STATE_CANCELLED"
)

// Install object event types.
const (
	OnDownloadStarted   = "onDownloadStarted"
	OnDownloadProgress  = "onDownloadProgress"
	OnDownloadEnded     = "onDownloadEnded"
	OnDownloadFailed    = "onDownloadFailed"
	OnDownloadCancelled = "onDownloadCancelled"
	OnInstallStarted    = "onInstallStarted"
	OnInstallEnded      = "onInstallEnded"
	OnInstallFailed     = "onInstallFailed"
	OnInstallCancelled  = "onInstallCancelled"
)

// Host-wide lifecycle events.
const (
	OnEnabling     = "onEnabling"
	OnEnabled      = "onEnabled"
	OnDisabling    = "onDisabling"
	OnDisabled     = "onDisabled"
	OnInstalling   = "onInstalling"
	OnInstalled    = "onInstalled"
	OnUninstalling = "onUninstalling"
	OnUninstalled  = "onUninstalled"
)

// LifecycleEvent is a host-wide lifecycle notification about one add-on.
type LifecycleEvent struct {
	Name string `json:"name"`
	GUID string `json:"guid"`
}

var globalEventStatus = map[string]install.Status{
	OnEnabling:     install.StatusEnabling,
	OnEnabled:      install.StatusEnabled,
	OnDisabling:    install.StatusDisabling,
	OnDisabled:     install.StatusDisabled,
	OnInstalling:   install.StatusInstalling,
	OnInstalled:    install.StatusInstalled,
	OnUninstalling: install.StatusUninstalling,
	OnUninstalled:  install.StatusUninstalled,
}

// GlobalEvents lists the lifecycle event names a host emits.
func GlobalEvents() []string {
	return []string{
		OnEnabling, OnEnabled, OnDisabling, OnDisabled,
		OnInstalling, OnInstalled, OnUninstalling, OnUninstalled,
	}
}

// StatusForGlobalEvent maps a lifecycle event name to the status it implies.
func StatusForGlobalEvent(name string) (install.Status, bool) {
	s, ok := globalEventStatus[name]
	return s, ok
}

// EventFor translates an install callback into a record event. The second
// result is false when the callback carries nothing the record tracks.
func EventFor(snapshot InstallSnapshot, ev HostEvent) (install.Event, bool) {
	if snapshot.State == StateDownloading {
		return install.DownloadProgress{Current: snapshot.Progress, Max: snapshot.MaxProgress}, true
	}

	switch ev.Type {
	case OnDownloadEnded:
		return install.DownloadEnded{}, true
	case OnDownloadFailed:
		reason := ""
		if ev.Target != nil {
			reason = ev.Target.Error
		}
		return install.DownloadFailed{Reason: reason}, true
	case OnInstallCancelled:
		return install.InstallCancelled{}, true
	case OnInstallFailed:
		return install.InstallFailed{}, true
	default:
		return nil, false
	}
}
