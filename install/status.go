package install

import "fmt"

// Status represents the install lifecycle state of an add-on.
type Status int

const (
	StatusUnknown      Status = iota // No information from the host yet
	StatusInactive                   // Enabled but not active (needs restart)
	StatusDownloading                // Package download in progress
	StatusInstalling                 // Download finished, host is installing
	StatusInstalled                  // Installed, not yet enabled
	StatusEnabled                    // Installed and running
	StatusEnabling                   // Host is enabling
	StatusDisabled                   // Installed but disabled
	StatusDisabling                  // Host is disabling
	StatusUninstalling               // Uninstall requested
	StatusUninstalled                // Not present on the host
	StatusError                      // Last operation failed, see Record.Error
)

var statusNames = [...]string{
	StatusUnknown:      "UNKNOWN",
	StatusInactive:     "INACTIVE",
	StatusDownloading:  "DOWNLOADING",
	StatusInstalling:   "INSTALLING",
	StatusInstalled:    "INSTALLED",
	StatusEnabled:      "ENABLED",
	StatusEnabling:     "ENABLING",
	StatusDisabled:     "DISABLED",
	StatusDisabling:    "DISABLING",
	StatusUninstalling: "UNINSTALLING",
	StatusUninstalled:  "UNINSTALLED",
	StatusError:        "ERROR",
}

// String returns the wire name of the status.
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return statusNames[StatusUnknown]
	}
	return statusNames[s]
}

// ParseStatus converts a wire name back into a Status.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return StatusUnknown, fmt.Errorf("unknown install status %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// IsTransitional reports whether the host is still working on the add-on.
func (s Status) IsTransitional() bool {
	switch s {
	case StatusDownloading, StatusInstalling, StatusEnabling, StatusDisabling, StatusUninstalling:
		return true
	default:
		return false
	}
}

// IsBusy reports whether a UI should keep showing a loading state.
// A static theme needs both install and enable, so INSTALLED is still busy for it.
func (s Status) IsBusy(staticTheme bool) bool {
	if s.IsTransitional() {
		return true
	}
	return staticTheme && s == StatusInstalled
}

// IsPresent reports whether the add-on is installed on the host in some form.
func (s Status) IsPresent() bool {
	switch s {
	case StatusInstalled, StatusEnabled, StatusDisabled, StatusInactive, StatusEnabling, StatusDisabling:
		return true
	default:
		return false
	}
}
