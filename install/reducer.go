package install

import "math/bits"

// Reduce applies ev to rec and returns the new record. It never fails:
// unknown events leave the record untouched.
func Reduce(rec Record, ev Event) Record {
	switch e := ev.(type) {
	case StartDownload:
		rec.Status = StatusDownloading
		rec.DownloadProgress = 0
		rec.Error = ErrNone

	case DownloadProgress:
		progress := rec.DownloadProgress
		if rec.Status != StatusDownloading {
			progress = 0
		}
		if e.Max > 0 {
			if p := Percent(e.Current, e.Max); p > progress {
				progress = p
			}
		}
		rec.Status = StatusDownloading
		rec.DownloadProgress = progress
		rec.Error = ErrNone

	case DownloadEnded:
		rec.Status = StatusInstalling
		rec.Error = ErrNone

	case DownloadFailed:
		if e.Reason == string(ErrCorruptFile) {
			rec = withError(rec, ErrCorruptFile)
		} else {
			rec = withError(rec, ErrDownloadFailed)
		}

	case InstallFailed:
		rec = withError(rec, ErrInstallFailed)

	case InstallCancelled:
		rec.Status = StatusUninstalled
		rec.DownloadProgress = 0
		rec.Error = ErrNone

	case StatusReported:
		canUninstall := e.CanUninstall
		rec.Status = e.Status
		rec.CanUninstall = &canUninstall
		rec.Version = e.Version
		rec.Error = ErrNone
		if e.Status == StatusError {
			// A host never reports ERROR itself; keep the invariant anyway.
			rec.Error = ErrFatal
		}

	case NotFound:
		rec.Status = StatusUninstalled
		rec.Error = ErrNone

	case UninstallRequested:
		rec.Status = StatusUninstalling
		rec.Error = ErrNone

	case Failed:
		kind := e.Kind
		if !kind.Valid() {
			kind = ErrFatal
		}
		rec = withError(rec, kind)

	case LifecycleChanged:
		if e.Status == StatusError {
			rec = withError(rec, ErrFatal)
			break
		}
		rec.Status = e.Status
		rec.Error = ErrNone
	}

	// progress only means something during an attempt
	if rec.Status != StatusDownloading && rec.Status != StatusInstalling {
		rec.DownloadProgress = 0
	}
	return rec
}

// Percent converts a byte count into a whole percentage clamped to 0..100.
func Percent(current, max int64) int {
	if max <= 0 || current <= 0 {
		return 0
	}
	if current >= max {
		return 100
	}
	// 100*current can exceed int64 for multi-exabyte counts
	hi, lo := bits.Mul64(uint64(current), 100)
	q, _ := bits.Div64(hi, lo, uint64(max))
	return int(q)
}

func withError(rec Record, kind ErrorKind) Record {
	rec.Status = StatusError
	rec.Error = kind
	rec.DownloadProgress = 0
	return rec
}
