package metrics

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/leeforge/addonstate/bus"
	"github.com/leeforge/addonstate/install"
	"github.com/leeforge/addonstate/store"
)

// Series recorded from install changes.
const (
	MetricEvents      = "addon_install_events_total"
	MetricTransitions = "addon_install_transitions_total"
	MetricErrors      = "addon_install_errors_total"
	MetricInstalls    = "addon_installs"
)

// Subscriber is the part of the bus the recorder needs.
type Subscriber interface {
	Subscribe(topic string, handler bus.Handler) bus.Subscription
}

// Recorder turns install change notifications into metrics.
type Recorder struct {
	collector *Collector
	logger    *zap.Logger
}

// NewRecorder creates a Recorder writing to collector.
func NewRecorder(collector *Collector, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{collector: collector, logger: logger}
}

// Attach subscribes the recorder to install change notifications.
func (r *Recorder) Attach(sub Subscriber) bus.Subscription {
	return sub.Subscribe(store.TopicChanged, r.handle)
}

func (r *Recorder) handle(_ context.Context, ev bus.Event) error {
	change, ok := ev.Data.(install.Change)
	if !ok {
		return fmt.Errorf("metrics: unexpected payload %T on %s", ev.Data, ev.Name)
	}
	r.Record(change)
	return nil
}

// Record counts one change.
//
// The per-status gauge treats a record seen for the first time as moving
// out of UNKNOWN, so it reflects records this process has observed.
func (r *Recorder) Record(change install.Change) {
	r.collector.IncCounter(MetricEvents, map[string]string{"event": change.Event})

	if change.StatusChanged() {
		from, to := change.Previous.Status.String(), change.Current.Status.String()
		r.collector.IncCounter(MetricTransitions, map[string]string{"from": from, "to": to})
		if change.Previous.Status != install.StatusUnknown {
			r.collector.AddGauge(MetricInstalls, -1, map[string]string{"status": from})
		}
		r.collector.AddGauge(MetricInstalls, 1, map[string]string{"status": to})
	}

	if change.Current.HasError() && change.Current.Error != change.Previous.Error {
		r.collector.IncCounter(MetricErrors, map[string]string{"kind": string(change.Current.Error)})
		r.logger.Debug("install error recorded",
			zap.String("guid", change.GUID),
			zap.String("kind", string(change.Current.Error)))
	}
}
