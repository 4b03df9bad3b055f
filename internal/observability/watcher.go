package observability

import "github.com/prometheus/client_golang/prometheus"

// WatcherMetrics tracks filesystem notification activity.
type WatcherMetrics struct {
	EventsDelivered *prometheus.CounterVec
	WatchesStarted  *prometheus.CounterVec
	WatchErrors     *prometheus.CounterVec
}

// NewWatcherMetrics creates and registers watcher metrics.
func NewWatcherMetrics(registry *prometheus.Registry) (*WatcherMetrics, error) {
	m := &WatcherMetrics{
		EventsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "watcher_events_delivered_total",
			Help: "Filesystem events delivered to callbacks, by watch role",
		}, []string{"role"}),
		WatchesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "watcher_watches_started_total",
			Help: "Directory watches established, by watch role",
		}, []string{"role"}),
		WatchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "watcher_errors_total",
			Help: "Errors reported by the notification source, by watch role",
		}, []string{"role"}),
	}
	if err := register(registry, m.EventsDelivered, m.WatchesStarted, m.WatchErrors); err != nil {
		return nil, err
	}
	return m, nil
}
