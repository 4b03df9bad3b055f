package results

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lanecast/lanecast/internal/conf"
	"github.com/lanecast/lanecast/internal/observability"
	"github.com/lanecast/lanecast/internal/startlist"
)

// meetIDPattern extracts the meet id from a result filename. Files without
// the leading digit run are not results and are rejected outright.
var meetIDPattern = regexp.MustCompile(`^(\d+)-`)

const (
	retryAttempts = 5
	retryUnit     = 50 * time.Millisecond
)

// Summary is one row of the informational results listing.
type Summary struct {
	Meet    string
	Event   int
	Heat    int
	ModTime time.Time
	Path    string
}

// Ingestor turns result files into RaceResults, tolerating files that are
// still being written by retrying briefly before giving up.
type Ingestor struct {
	store   *startlist.Store
	logger  *slog.Logger
	metrics *observability.IngestMetrics

	// cfg is swapped atomically so a settings reload never tears a read
	// in a concurrently running parse.
	cfg atomic.Pointer[DecoderConfig]

	// onDrop, when set, is told about files that exhausted the retry
	// budget. The drop itself stays silent toward the pipeline.
	onDrop func(path string)

	// sleep is swapped out by tests.
	sleep func(time.Duration)
}

// NewIngestor wires an ingestor to the start-list store it consults for
// swimmer identity.
func NewIngestor(store *startlist.Store, cfg DecoderConfig, logger *slog.Logger, metrics *observability.IngestMetrics) *Ingestor {
	ing := &Ingestor{
		store:   store,
		logger:  logger,
		metrics: metrics,
		sleep:   time.Sleep,
	}
	ing.cfg.Store(&cfg)
	return ing
}

// SetDecoderConfig replaces decoding parameters, used on settings reload.
// Safe to call while parses are in flight; each parse attempt reads one
// consistent snapshot.
func (ing *Ingestor) SetDecoderConfig(cfg DecoderConfig) {
	ing.cfg.Store(&cfg)
}

// OnDrop registers a callback invoked when a result file is abandoned after
// all retries fail.
func (ing *Ingestor) OnDrop(fn func(path string)) {
	ing.onDrop = fn
}

// ParseWithRetry decodes a result file, retrying up to five times with a
// linearly growing pause (50ms, 100ms, ... 250ms) to ride out a writer that
// has not finished flushing. Exhausting the budget drops the file: nil is
// returned with no error, logged at debug only. A filename without the
// leading meet id is rejected without any parse attempt.
func (ing *Ingestor) ParseWithRetry(path string) *RaceResult {
	meet := meetID(path)
	if meet == "" {
		if ing.metrics != nil {
			ing.metrics.FilenameRejected.Inc()
		}
		ing.logger.Debug("result filename missing meet id", "path", path)
		return nil
	}

	var race *RaceResult
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		if ing.metrics != nil {
			ing.metrics.ParseAttempts.Inc()
		}
		var err error
		race, err = DecodeFile(path, *ing.cfg.Load())
		if err == nil {
			break
		}
		ing.logger.Debug("result parse attempt failed",
			"path", path, "attempt", attempt, "error", err)
		ing.sleep(time.Duration(attempt) * retryUnit)
	}
	if race == nil {
		if ing.metrics != nil {
			ing.metrics.ResultsDropped.Inc()
		}
		ing.logger.Debug("result dropped after retries", "path", path)
		if ing.onDrop != nil {
			ing.onDrop(path)
		}
		return nil
	}

	race.MeetID = meet
	ing.mergeNames(race)
	if ing.metrics != nil {
		ing.metrics.ResultsIngested.Inc()
	}
	ing.logger.Info("result ingested",
		"meet", race.MeetID, "event", race.EventNum, "heat", race.Heat)
	return race
}

// mergeNames attaches swimmer name and team per lane from the start-list
// table. A missing entry leaves identity blank; the result still publishes.
func (ing *Ingestor) mergeNames(race *RaceResult) {
	entry, ok := ing.store.Find(race.EventNum)
	if !ok {
		if ing.metrics != nil {
			ing.metrics.StartListMisses.Inc()
		}
		ing.logger.Debug("no start list for event", "event", race.EventNum)
		return
	}
	race.Description = entry.Description
	for i := range race.Lanes {
		if sw, ok := entry.Swimmer(race.Heat, race.Lanes[i].Lane); ok {
			race.Lanes[i].Name = sw.Name
			race.Lanes[i].Team = sw.Team
		}
	}
}

// Rescan single-pass-parses every result file in dir for the summary
// listing. No retries: a file mid-write simply does not show up until the
// next scan. Unparsable files are skipped, never fatal to the batch.
func (ing *Ingestor) Rescan(dir string) ([]Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []Summary
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(strings.ToLower(de.Name()), conf.ResultExt) {
			continue
		}
		meet := meetID(de.Name())
		if meet == "" {
			continue
		}
		path := filepath.Join(dir, de.Name())
		race, err := DecodeFile(path, *ing.cfg.Load())
		if err != nil {
			ing.logger.Debug("skipping unparsable result", "path", path, "error", err)
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		out = append(out, Summary{
			Meet:    meet,
			Event:   race.EventNum,
			Heat:    race.Heat,
			ModTime: info.ModTime(),
			Path:    path,
		})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ModTime.After(out[b].ModTime) })
	return out, nil
}

func meetID(path string) string {
	m := meetIDPattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return ""
	}
	return m[1]
}
