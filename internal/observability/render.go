package observability

import "github.com/prometheus/client_golang/prometheus"

// RenderMetrics tracks scoreboard image composition.
type RenderMetrics struct {
	FramesRendered prometheus.Counter
	RenderDuration prometheus.Histogram
	RenderErrors   prometheus.Counter
	FrameBytes     prometheus.Histogram
}

// NewRenderMetrics creates and registers compositor metrics.
func NewRenderMetrics(registry *prometheus.Registry) (*RenderMetrics, error) {
	m := &RenderMetrics{
		FramesRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "render_frames_total",
			Help: "Scoreboard frames rendered",
		}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "render_duration_seconds",
			Help:    "Time to compose and encode one frame",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		RenderErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "render_errors_total",
			Help: "Frames that failed to render or encode",
		}),
		FrameBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "render_frame_bytes",
			Help:    "Encoded frame size in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12),
		}),
	}
	if err := register(registry, m.FramesRendered, m.RenderDuration,
		m.RenderErrors, m.FrameBytes); err != nil {
		return nil, err
	}
	return m, nil
}
