// Package pipeline wires the stages together: directory watchers feed the
// start-list store and result ingestor, ingested results are composited
// into frames, and frames fan out to display devices. Stages communicate
// over the event bus; the single bus worker keeps frame order.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lanecast/lanecast/internal/conf"
	"github.com/lanecast/lanecast/internal/events"
	"github.com/lanecast/lanecast/internal/observability"
	"github.com/lanecast/lanecast/internal/publisher"
	"github.com/lanecast/lanecast/internal/results"
	"github.com/lanecast/lanecast/internal/scoreboard"
	"github.com/lanecast/lanecast/internal/startlist"
	"github.com/lanecast/lanecast/internal/watcher"
)

const startlistDebounce = 50 * time.Millisecond

// Pipeline owns the live scoreboard dataflow.
type Pipeline struct {
	logger  *slog.Logger
	metrics *observability.Metrics

	bus      *events.Bus
	store    *startlist.Store
	ingestor *results.Ingestor
	fanout   *publisher.FanOut

	slWatcher  *watcher.DirWatcher
	resWatcher *watcher.DirWatcher
	discovery  publisher.DiscoverySource

	mu           sync.Mutex
	renderCfg    scoreboard.Config
	currentRace  *results.RaceResult
	currentFrame []byte
	resultDir    string
	startListDir string
	lastDrop     string
	lastDropAt   time.Time
}

// New assembles a pipeline from its collaborators. Call Start to bring it
// up.
func New(settings *conf.Settings, sender publisher.Sender, discovery publisher.DiscoverySource,
	metrics *observability.Metrics, logger *slog.Logger) (*Pipeline, error) {

	renderCfg, err := scoreboard.ConfigFromSettings(&settings.Realtime.Scoreboard)
	if err != nil {
		return nil, err
	}

	var (
		watcherMetrics *observability.WatcherMetrics
		ingestMetrics  *observability.IngestMetrics
		publishMetrics *observability.PublishMetrics
	)
	if metrics != nil {
		watcherMetrics = metrics.Watcher
		ingestMetrics = metrics.Ingest
		publishMetrics = metrics.Publish
	}

	store := startlist.NewStore(logger.With("stage", "startlist"))
	ingestor := results.NewIngestor(store,
		results.DefaultDecoderConfig(&settings.Realtime.Decoder),
		logger.With("stage", "ingest"), ingestMetrics)

	p := &Pipeline{
		logger:    logger,
		metrics:   metrics,
		bus:       events.NewBus(events.DefaultConfig(), logger.With("stage", "bus")),
		store:     store,
		ingestor:  ingestor,
		fanout:    publisher.NewFanOut(sender, settings.Realtime.Publish.SendTimeout, logger.With("stage", "fanout"), publishMetrics),
		discovery: discovery,
		renderCfg: renderCfg,
	}
	p.slWatcher = watcher.New("startlists", conf.StartListExt, startlistDebounce,
		p.onStartListEvent, logger, watcherMetrics)
	p.resWatcher = watcher.New("results", conf.ResultExt, 0,
		p.onResultEvent, logger, watcherMetrics)

	ingestor.OnDrop(p.onIngestDrop)
	return p, nil
}

// Start registers bus consumers, begins discovery, points the watchers at
// the configured directories and pushes the first (waiting) frame.
func (p *Pipeline) Start(ctx context.Context, settings *conf.Settings) error {
	if err := p.bus.RegisterConsumer(&renderConsumer{p: p}); err != nil {
		return err
	}
	if err := p.bus.RegisterConsumer(&publishConsumer{p: p}); err != nil {
		return err
	}

	if p.discovery != nil {
		if err := p.discovery.Start(ctx, p.fanout.UpdateDevices); err != nil {
			return err
		}
	}

	if err := p.SetStartListDir(settings.Realtime.StartListDir); err != nil {
		return err
	}
	if err := p.SetResultDir(settings.Realtime.ResultDir); err != nil {
		return err
	}

	conf.Subscribe(p.onSettingsChange)

	// The first (waiting) frame goes through the bus like every other
	// render so composition stays on the single bus worker.
	p.bus.TryPublish(events.SettingsEvent{})
	return nil
}

// Stop tears the pipeline down in dataflow order.
func (p *Pipeline) Stop() {
	p.slWatcher.Stop()
	p.resWatcher.Stop()
	if p.discovery != nil {
		p.discovery.Stop()
	}
	if err := p.bus.Shutdown(5 * time.Second); err != nil {
		p.logger.Warn("event bus shutdown", "error", err)
	}
	p.fanout.Close()
}

// SetStartListDir re-points the start-list watcher and synchronously
// rebuilds the table so results arriving right after the switch already
// see the new lists. A missing directory leaves the previous watch alone.
func (p *Pipeline) SetStartListDir(dir string) error {
	if err := p.slWatcher.Watch(dir); err != nil {
		return err
	}
	p.mu.Lock()
	p.startListDir = dir
	p.mu.Unlock()
	p.rescanStartLists(dir)
	return nil
}

// SetResultDir re-points the result watcher. Pre-existing result files are
// not replayed onto the board; they only show in the summary listing.
func (p *Pipeline) SetResultDir(dir string) error {
	if err := p.resWatcher.Watch(dir); err != nil {
		return err
	}
	p.mu.Lock()
	p.resultDir = dir
	p.mu.Unlock()
	return nil
}

// Frame returns the most recently published PNG.
func (p *Pipeline) Frame() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentFrame
}

// Devices exposes fan-out status for the control surface.
func (p *Pipeline) Devices() []publisher.DeviceStatus { return p.fanout.Devices() }

// SetDeviceEnabled toggles one device.
func (p *Pipeline) SetDeviceEnabled(id string, enabled bool) bool {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return false
	}
	return p.fanout.SetEnabled(parsed, enabled)
}

// Events lists the current start-list table.
func (p *Pipeline) Events() []*startlist.Entry { return p.store.Events() }

// Results scans the result directory for the summary listing.
func (p *Pipeline) Results() ([]results.Summary, error) {
	p.mu.Lock()
	dir := p.resultDir
	p.mu.Unlock()
	return p.ingestor.Rescan(dir)
}

// LastDrop reports the most recent result file abandoned by the retry
// loop, if any.
func (p *Pipeline) LastDrop() (string, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastDrop, p.lastDropAt
}

// onStartListEvent fires on debounced start-list directory activity.
func (p *Pipeline) onStartListEvent(watcher.Event) {
	p.mu.Lock()
	dir := p.startListDir
	p.mu.Unlock()
	p.rescanStartLists(dir)
}

// onResultEvent fires per result file. Each file gets its own goroutine so
// one slow retry loop cannot starve a concurrently arriving result. Only
// creation triggers a parse: the console creates each file once and keeps
// writing until the trailer lands, and the retry loop rides out that
// window. Acting on the write burst too would parse the same file several
// times over.
func (p *Pipeline) onResultEvent(ev watcher.Event) {
	if ev.Op != watcher.OpCreate {
		return
	}
	go func() {
		race := p.ingestor.ParseWithRetry(ev.Path)
		if race == nil {
			return
		}
		p.mu.Lock()
		p.currentRace = race
		p.mu.Unlock()
		p.bus.TryPublish(events.ResultEvent{Race: race})
	}()
}

func (p *Pipeline) onIngestDrop(path string) {
	p.mu.Lock()
	p.lastDrop = path
	p.lastDropAt = time.Now()
	p.mu.Unlock()
	p.bus.TryPublish(events.IngestDroppedEvent{Path: path, At: time.Now()})
}

func (p *Pipeline) rescanStartLists(dir string) {
	if dir == "" {
		return
	}
	if err := p.store.Rescan(dir); err != nil {
		p.logger.Warn("start list rescan failed", "dir", dir, "error", err)
		return
	}
	p.bus.TryPublish(events.StartListsEvent{Dir: dir, Events: len(p.store.Events())})
}

// onSettingsChange reacts to configuration reloads: rebuild the render
// config and decoder parameters, re-point directories, then recompose.
func (p *Pipeline) onSettingsChange(s *conf.Settings) {
	renderCfg, err := scoreboard.ConfigFromSettings(&s.Realtime.Scoreboard)
	if err != nil {
		p.logger.Error("render settings rejected", "error", err)
		return
	}
	p.ingestor.SetDecoderConfig(results.DefaultDecoderConfig(&s.Realtime.Decoder))

	p.mu.Lock()
	p.renderCfg = renderCfg
	slDir := p.startListDir != s.Realtime.StartListDir
	resDir := p.resultDir != s.Realtime.ResultDir
	p.mu.Unlock()

	if slDir {
		if err := p.SetStartListDir(s.Realtime.StartListDir); err != nil {
			p.logger.Warn("start list watch failed", "error", err)
		}
	}
	if resDir {
		if err := p.SetResultDir(s.Realtime.ResultDir); err != nil {
			p.logger.Warn("result watch failed", "error", err)
		}
	}
	p.bus.TryPublish(events.SettingsEvent{})
}

// renderAndPush composites the current content and hands the frame to the
// bus. Only the bus worker calls this, via renderConsumer.
func (p *Pipeline) renderAndPush() {
	p.mu.Lock()
	race := p.currentRace
	cfg := p.renderCfg
	p.mu.Unlock()

	start := time.Now()
	img, err := scoreboard.Render(race, cfg, conf.ImageWidth, conf.ImageHeight)
	if err != nil {
		if p.metrics != nil {
			p.metrics.Render.RenderErrors.Inc()
		}
		p.logger.Error("render failed", "error", err)
		return
	}
	png, err := scoreboard.EncodePNG(img)
	if err != nil {
		if p.metrics != nil {
			p.metrics.Render.RenderErrors.Inc()
		}
		p.logger.Error("frame encode failed", "error", err)
		return
	}
	if p.metrics != nil {
		p.metrics.Render.FramesRendered.Inc()
		p.metrics.Render.RenderDuration.Observe(time.Since(start).Seconds())
		p.metrics.Render.FrameBytes.Observe(float64(len(png)))
	}
	p.bus.TryPublish(events.FrameEvent{PNG: png, At: time.Now()})
}

// renderConsumer recomposes the board whenever content or settings change.
type renderConsumer struct{ p *Pipeline }

func (renderConsumer) Name() string { return "render" }

func (c renderConsumer) Handle(ev events.Event) error {
	switch ev.(type) {
	case events.ResultEvent, events.SettingsEvent, events.StartListsEvent:
		c.p.renderAndPush()
	}
	return nil
}

// publishConsumer forwards finished frames to the fan-out and keeps the
// latest one for the preview endpoint.
type publishConsumer struct{ p *Pipeline }

func (publishConsumer) Name() string { return "publish" }

func (c publishConsumer) Handle(ev events.Event) error {
	fe, ok := ev.(events.FrameEvent)
	if !ok {
		return nil
	}
	c.p.mu.Lock()
	c.p.currentFrame = fe.PNG
	c.p.mu.Unlock()
	c.p.fanout.Publish(fe.PNG)
	return nil
}
