// Package tracking sends analytics events for install lifecycle actions.
package tracking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/leeforge/addonstate/addon"
)

// Action is the lifecycle step an event reports.
type Action string

const (
	ActionInstallStarted   Action = "install_started"
	ActionInstall          Action = "install"
	ActionInstallCancelled Action = "install_cancelled"
	ActionInstallFailed    Action = "install_failed"
	ActionDownloadFailed   Action = "download_failed"
	ActionEnable           Action = "enable"
	ActionUninstall        Action = "uninstall"
)

var actionCategory = map[Action][2]string{
	// {extension-like, theme}
	ActionInstallStarted:   {"AMO Addon Installs Started", "AMO Theme Installs Started"},
	ActionInstall:          {"AMO Addon Installs", "AMO Theme Installs"},
	ActionInstallCancelled: {"AMO Addon Installs Cancelled", "AMO Theme Installs Cancelled"},
	ActionInstallFailed:    {"AMO Addon Installs Failed", "AMO Theme Installs Failed"},
	ActionDownloadFailed:   {"AMO Addon Downloads Failed", "AMO Theme Downloads Failed"},
	ActionEnable:           {"AMO Addon Activates", "AMO Theme Activates"},
	ActionUninstall:        {"AMO Addon Uninstalls", "AMO Theme Uninstalls"},
}

// Category derives the analytics category from the add-on type and action.
func Category(t addon.Type, action Action) string {
	pair, ok := actionCategory[action]
	if !ok {
		return "AMO Unknown"
	}
	if t == addon.TypeStaticTheme {
		return pair[1]
	}
	return pair[0]
}

// Event is one analytics hit.
type Event struct {
	ID       string    `json:"id"`
	Action   string    `json:"action"`
	Category string    `json:"category"`
	Label    string    `json:"label"`
	SentAt   time.Time `json:"sentAt"`
}

// NewEvent builds the event for an action on an add-on. The label is the guid.
func NewEvent(a addon.Addon, action Action) Event {
	return Event{
		ID:       uuid.NewString(),
		Action:   a.Type.TrackingName(),
		Category: Category(a.Type, action),
		Label:    a.GUID,
		SentAt:   time.Now(),
	}
}

// Sink delivers events somewhere.
type Sink interface {
	Send(ctx context.Context, event Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event Event) error

func (f SinkFunc) Send(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Tracker is what the controller talks to. Track never reports failure.
type Tracker interface {
	Track(ctx context.Context, event Event)
}

type nopTracker struct{}

func (nopTracker) Track(context.Context, Event) {}

// Nop returns a Tracker that drops everything.
func Nop() Tracker { return nopTracker{} }
