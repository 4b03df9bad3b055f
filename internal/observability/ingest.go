package observability

import "github.com/prometheus/client_golang/prometheus"

// IngestMetrics tracks result file ingestion.
type IngestMetrics struct {
	ResultsIngested  prometheus.Counter
	ParseAttempts    prometheus.Counter
	ResultsDropped   prometheus.Counter
	FilenameRejected prometheus.Counter
	StartListMisses  prometheus.Counter
}

// NewIngestMetrics creates and registers ingest metrics.
func NewIngestMetrics(registry *prometheus.Registry) (*IngestMetrics, error) {
	m := &IngestMetrics{
		ResultsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_results_total",
			Help: "Race results successfully ingested",
		}),
		ParseAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_parse_attempts_total",
			Help: "Individual result file parse attempts, including retries",
		}),
		ResultsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_results_dropped_total",
			Help: "Result files dropped after exhausting the retry budget",
		}),
		FilenameRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_filename_rejected_total",
			Help: "Result files rejected for a filename without a meet id prefix",
		}),
		StartListMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_startlist_misses_total",
			Help: "Ingested results with no matching start list entry",
		}),
	}
	if err := register(registry, m.ResultsIngested, m.ParseAttempts,
		m.ResultsDropped, m.FilenameRejected, m.StartListMisses); err != nil {
		return nil, err
	}
	return m, nil
}
