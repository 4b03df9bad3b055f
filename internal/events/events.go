// Package events carries the pipeline's typed messages between stages.
package events

import (
	"time"

	"github.com/lanecast/lanecast/internal/results"
)

// Event is anything the bus can carry.
type Event interface {
	// Name identifies the event type for logging.
	Name() string
}

// StartListsEvent signals that the start-list table was rebuilt.
type StartListsEvent struct {
	Dir    string
	Events int // number of entries in the new table
}

func (StartListsEvent) Name() string { return "startlists.updated" }

// ResultEvent carries a freshly ingested race result.
type ResultEvent struct {
	Race *results.RaceResult
}

func (ResultEvent) Name() string { return "result.ingested" }

// FrameEvent carries a rendered scoreboard frame ready for publishing.
type FrameEvent struct {
	PNG []byte
	At  time.Time
}

func (FrameEvent) Name() string { return "frame.rendered" }

// SettingsEvent signals that render-affecting settings changed and the
// current content should be recomposed.
type SettingsEvent struct{}

func (SettingsEvent) Name() string { return "settings.changed" }

// IngestDroppedEvent reports a result file abandoned after all parse
// retries, so status surfaces can show a degraded indicator.
type IngestDroppedEvent struct {
	Path string
	At   time.Time
}

func (IngestDroppedEvent) Name() string { return "ingest.dropped" }
