package install

// Event is a proposed transition for a Record. The set of events is closed.
type Event interface {
	// Name identifies the event in logs and change notifications.
	Name() string
	isEvent()
}

// StartDownload begins a new install attempt.
type StartDownload struct{}

// DownloadProgress carries a byte-level progress tick from the host.
type DownloadProgress struct {
	Current int64
	Max     int64
}

// DownloadEnded means the host finished downloading and starts installing.
type DownloadEnded struct{}

// DownloadFailed carries the host's failure reason, e.g. ERROR_CORRUPT_FILE.
type DownloadFailed struct {
	Reason string
}

// InstallFailed means the host install step failed.
type InstallFailed struct{}

// InstallCancelled means the user or host cancelled the install. Not an error.
type InstallCancelled struct{}

// StatusReported is the result of a successful host status lookup.
type StatusReported struct {
	Status       Status
	CanUninstall bool
	Version      string
}

// NotFound means the host does not know the add-on.
type NotFound struct{}

// UninstallRequested is applied before the host uninstall call settles.
type UninstallRequested struct{}

// Failed moves the record into ERROR with the given kind.
type Failed struct {
	Kind ErrorKind
}

// LifecycleChanged is a host-wide lifecycle notification such as onEnabled.
type LifecycleChanged struct {
	Status Status
}

func (StartDownload) Name() string      { return "start_download" }
func (DownloadProgress) Name() string   { return "download_progress" }
func (DownloadEnded) Name() string      { return "download_ended" }
func (DownloadFailed) Name() string     { return "download_failed" }
func (InstallFailed) Name() string      { return "install_failed" }
func (InstallCancelled) Name() string   { return "install_cancelled" }
func (StatusReported) Name() string     { return "status_reported" }
func (NotFound) Name() string           { return "not_found" }
func (UninstallRequested) Name() string { return "uninstall_requested" }
func (Failed) Name() string             { return "failed" }
func (LifecycleChanged) Name() string   { return "lifecycle_changed" }

func (StartDownload) isEvent()      {}
func (DownloadProgress) isEvent()   {}
func (DownloadEnded) isEvent()      {}
func (DownloadFailed) isEvent()     {}
func (InstallFailed) isEvent()      {}
func (InstallCancelled) isEvent()   {}
func (StatusReported) isEvent()     {}
func (NotFound) isEvent()           {}
func (UninstallRequested) isEvent() {}
func (Failed) isEvent()             {}
func (LifecycleChanged) isEvent()   {}
