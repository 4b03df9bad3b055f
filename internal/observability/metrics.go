// Package observability provides Prometheus metrics for the scoreboard
// pipeline components.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles all component metrics behind a single registry.
type Metrics struct {
	registry *prometheus.Registry

	Watcher *WatcherMetrics
	Ingest  *IngestMetrics
	Render  *RenderMetrics
	Publish *PublishMetrics
}

// NewMetrics creates a registry with all component metrics registered.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	m := &Metrics{registry: registry}
	var err error
	if m.Watcher, err = NewWatcherMetrics(registry); err != nil {
		return nil, err
	}
	if m.Ingest, err = NewIngestMetrics(registry); err != nil {
		return nil, err
	}
	if m.Render, err = NewRenderMetrics(registry); err != nil {
		return nil, err
	}
	if m.Publish, err = NewPublishMetrics(registry); err != nil {
		return nil, err
	}
	return m, nil
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func register(registry *prometheus.Registry, cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}
