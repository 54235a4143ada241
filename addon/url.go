package addon

// InstallSource is the resolved download for an install attempt.
type InstallSource struct {
	URL  string
	Hash string
}

// FindInstallSource picks the file matching platform, falling back to a file
// for every platform. It returns false when the current version offers nothing.
func (a Addon) FindInstallSource(platform Platform) (InstallSource, bool) {
	if a.Current == nil || len(a.Current.Files) == 0 {
		return InstallSource{}, false
	}

	var fallback *File
	for i := range a.Current.Files {
		f := &a.Current.Files[i]
		if f.URL == "" {
			continue
		}
		if platform != "" && f.Platform == platform {
			return InstallSource{URL: f.URL, Hash: f.Hash}, true
		}
		if fallback == nil && (f.Platform == PlatformAll || f.Platform == "") {
			fallback = f
		}
	}

	if fallback == nil {
		return InstallSource{}, false
	}
	return InstallSource{URL: fallback.URL, Hash: fallback.Hash}, true
}
