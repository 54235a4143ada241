package install

import "time"

// Record is the per add-on install state kept by a store.
type Record struct {
	GUID             string    `json:"guid"`
	Status           Status    `json:"status"`
	DownloadProgress int       `json:"downloadProgress"`
	Error            ErrorKind `json:"error,omitempty"`
	CanUninstall     *bool     `json:"canUninstall,omitempty"`
	Version          string    `json:"version,omitempty"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// NewRecord returns the default record for a guid that has not been seen.
func NewRecord(guid string) Record {
	return Record{GUID: guid, Status: StatusUnknown}
}

// HasError reports whether the record is in the ERROR state.
func (r Record) HasError() bool {
	return r.Status == StatusError
}

// Uninstallable reports whether the host permits uninstalling. Unknown counts as false.
func (r Record) Uninstallable() bool {
	return r.CanUninstall != nil && *r.CanUninstall
}

// Equal compares records ignoring UpdatedAt.
func (r Record) Equal(other Record) bool {
	if r.GUID != other.GUID || r.Status != other.Status ||
		r.DownloadProgress != other.DownloadProgress || r.Error != other.Error ||
		r.Version != other.Version {
		return false
	}
	if (r.CanUninstall == nil) != (other.CanUninstall == nil) {
		return false
	}
	return r.CanUninstall == nil || *r.CanUninstall == *other.CanUninstall
}

// Change describes a record before and after an event was applied.
type Change struct {
	GUID     string `json:"guid"`
	Event    string `json:"event"`
	Previous Record `json:"previous"`
	Current  Record `json:"current"`
}

// StatusChanged reports whether the status moved.
func (c Change) StatusChanged() bool {
	return c.Previous.Status != c.Current.Status
}
