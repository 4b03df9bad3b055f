package observability

import "github.com/prometheus/client_golang/prometheus"

// PublishMetrics tracks frame delivery to display devices.
type PublishMetrics struct {
	FramesDelivered *prometheus.CounterVec
	DeliveryErrors  *prometheus.CounterVec
	FramesCoalesced *prometheus.CounterVec
	DeliveryLatency prometheus.Histogram
	DevicesKnown    prometheus.Gauge
	DevicesEnabled  prometheus.Gauge
}

// NewPublishMetrics creates and registers fan-out metrics.
func NewPublishMetrics(registry *prometheus.Registry) (*PublishMetrics, error) {
	m := &PublishMetrics{
		FramesDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "publish_frames_delivered_total",
			Help: "Frames delivered per device",
		}, []string{"device"}),
		DeliveryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "publish_delivery_errors_total",
			Help: "Failed or timed out deliveries per device",
		}, []string{"device"}),
		FramesCoalesced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "publish_frames_coalesced_total",
			Help: "Frames superseded before a device accepted them",
		}, []string{"device"}),
		DeliveryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "publish_delivery_seconds",
			Help:    "Time to deliver one frame to one device",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		DevicesKnown: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "publish_devices_known",
			Help: "Devices currently known from discovery",
		}),
		DevicesEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "publish_devices_enabled",
			Help: "Devices currently enabled for delivery",
		}),
	}
	if err := register(registry, m.FramesDelivered, m.DeliveryErrors,
		m.FramesCoalesced, m.DeliveryLatency, m.DevicesKnown, m.DevicesEnabled); err != nil {
		return nil, err
	}
	return m, nil
}
