package install

// ErrorKind is the user-facing failure code stored on a Record.
type ErrorKind string

const (
	ErrNone ErrorKind = ""

	// ErrCorruptFile means the downloaded package failed its integrity or signature check.
	ErrCorruptFile ErrorKind = "ERROR_CORRUPT_FILE"
	// ErrDownloadFailed is a generic download failure.
	ErrDownloadFailed ErrorKind = "DOWNLOAD_FAILED"
	// ErrInstallFailed means the host install step failed after a successful download.
	ErrInstallFailed ErrorKind = "INSTALL_FAILED"
	// ErrFatalInstall is an unexpected failure during the install sequence.
	ErrFatalInstall ErrorKind = "FATAL_INSTALL_ERROR"
	// ErrFatalUninstall is an unexpected failure during uninstall.
	ErrFatalUninstall ErrorKind = "FATAL_UNINSTALL_ERROR"
	// ErrFatal is the catch-all for status refresh and enable failures.
	ErrFatal ErrorKind = "FATAL_ERROR"
)

// ErrorKinds lists every known kind.
var ErrorKinds = []ErrorKind{
	ErrCorruptFile,
	ErrDownloadFailed,
	ErrInstallFailed,
	ErrFatalInstall,
	ErrFatalUninstall,
	ErrFatal,
}

// Valid reports whether k is one of the known kinds.
func (k ErrorKind) Valid() bool {
	for _, known := range ErrorKinds {
		if k == known {
			return true
		}
	}
	return false
}
