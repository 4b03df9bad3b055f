package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanecast/lanecast/internal/conf"
	"github.com/lanecast/lanecast/internal/publisher"
	"github.com/lanecast/lanecast/internal/startlist"
	"github.com/lanecast/lanecast/internal/watcher"
)

func testSettings(startListDir, resultDir string) *conf.Settings {
	return &conf.Settings{
		Realtime: conf.RealtimeSettings{
			StartListDir: startListDir,
			ResultDir:    resultDir,
			Decoder: conf.DecoderSettings{
				Lanes: conf.MaxLanes, MinReadings: 2, MinValidTime: 0.30, MaxSpread: 0.30,
			},
			Scoreboard: conf.ScoreboardSettings{
				Title: "Test Board", Lanes: 6, BorderPct: 0.05, HeaderGapPct: 0.05,
				Colors: conf.ColorSettings{
					Background: "#000000", Text: "#FFFFFF", Title: "#FFFFFF",
					First: "#00FFFF", Second: "#FF0000", Third: "#FFFF00",
					EvenRow: "#FFFFFF", OddRow: "#CCCCCC",
				},
				Background: conf.BackgroundSettings{Fill: "fit"},
			},
			Publish: conf.PublishSettings{SendTimeout: time.Second},
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeStartList(t *testing.T, dir string, event int, desc string, heats int, lane1 string) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "#%03d %s\r\n", event, desc)
	for h := 1; h <= heats; h++ {
		for lane := 1; lane <= conf.MaxLanes; lane++ {
			if lane == 1 {
				fmt.Fprintf(&b, "%-20s--%-16s\r\n", lane1, "TEAM")
			} else {
				b.WriteString("\r\n")
			}
		}
	}
	path := filepath.Join(dir, startlist.FileForEvent(event))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func writeResult(t *testing.T, dir string, meet string, event, heat int) string {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "%d;%d;1;All\n", event, heat)
	for lane := 1; lane <= conf.MaxLanes; lane++ {
		if lane == 1 {
			fmt.Fprintf(&b, "Lane%d;59.00;59.02;59.04\n", lane)
		} else {
			fmt.Fprintf(&b, "Lane%d;0;0;0\n", lane)
		}
	}
	b.WriteString("F679E29E3D72400AA87E1CC4CB3F7272\n")
	name := fmt.Sprintf("%s-Test-Event%d.do4", meet, event)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func startTestPipeline(t *testing.T, settings *conf.Settings) *Pipeline {
	t.Helper()
	p, err := New(settings, publisher.NopSender{}, nil, nil, testLogger())
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background(), settings))
	t.Cleanup(p.Stop)
	return p
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestPipelinePublishesWaitingFrameOnStart(t *testing.T) {
	p := startTestPipeline(t, testSettings(t.TempDir(), t.TempDir()))
	waitFor(t, func() bool { return len(p.Frame()) > 0 }, "no initial frame")
}

func TestPipelineMergesStartListIntoResult(t *testing.T) {
	slDir := t.TempDir()
	resDir := t.TempDir()
	writeStartList(t, slDir, 7, "Boys 100 Free", 4, "SWIMMER, ONE")

	p := startTestPipeline(t, testSettings(slDir, resDir))

	waitFor(t, func() bool { return len(p.Events()) == 1 }, "start list never scanned")

	baseline := p.Frame()
	writeResult(t, resDir, "001", 7, 1)

	waitFor(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.currentRace != nil
	}, "result never ingested")

	p.mu.Lock()
	race := p.currentRace
	p.mu.Unlock()
	assert.Equal(t, "Boys 100 Free", race.Description)
	assert.Equal(t, "SWIMMER, ONE", race.Lanes[0].Name)
	assert.Equal(t, "001", race.MeetID)

	waitFor(t, func() bool {
		f := p.Frame()
		return len(f) > 0 && !assert.ObjectsAreEqual(baseline, f)
	}, "frame never updated after result")
}

func TestPipelineStartListsArriveAfterWatch(t *testing.T) {
	slDir := t.TempDir()
	p := startTestPipeline(t, testSettings(slDir, t.TempDir()))

	writeStartList(t, slDir, 3, "Girls 50 Fly", 2, "FLYER, FAST")
	waitFor(t, func() bool {
		evs := p.Events()
		return len(evs) == 1 && evs[0].EventNum == 3
	}, "new start list never picked up")
}

func TestPipelineRepointStartListDir(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeStartList(t, first, 1, "Old Event", 1, "OLD, SWIMMER")
	writeStartList(t, second, 7, "Boys 100 Free", 4, "NEW, SWIMMER")

	p := startTestPipeline(t, testSettings(first, t.TempDir()))
	waitFor(t, func() bool { return len(p.Events()) == 1 }, "initial scan missing")

	require.NoError(t, p.SetStartListDir(second))
	evs := p.Events()
	require.Len(t, evs, 1, "table is replaced wholesale, not merged")
	assert.Equal(t, 7, evs[0].EventNum)
}

func TestPipelineDroppedResultIsObservable(t *testing.T) {
	resDir := t.TempDir()
	p := startTestPipeline(t, testSettings(t.TempDir(), resDir))

	// The retry budget is ~0.75s; the garbage file exhausts all of it.
	path := filepath.Join(resDir, "001-broken.do4")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	waitFor(t, func() bool {
		dropped, _ := p.LastDrop()
		return dropped == path
	}, "drop never surfaced")

	p.mu.Lock()
	race := p.currentRace
	p.mu.Unlock()
	assert.Nil(t, race, "a dropped file must not reach the board")
}

func TestPipelineIngestsOnlyOnResultCreation(t *testing.T) {
	p := startTestPipeline(t, testSettings(t.TempDir(), t.TempDir()))

	// Events are injected directly; the file lives outside the watched
	// directory so the real watcher stays quiet.
	dir := t.TempDir()
	path := writeResult(t, dir, "001", 7, 1)

	// The console creates each file once and then writes in bursts.
	// Acting on anything but the create would parse the same file again.
	for _, op := range []watcher.Op{watcher.OpModify, watcher.OpDelete, watcher.OpRename} {
		p.onResultEvent(watcher.Event{Path: path, Op: op})
	}
	time.Sleep(250 * time.Millisecond)
	p.mu.Lock()
	race := p.currentRace
	p.mu.Unlock()
	assert.Nil(t, race, "write events must not start an ingest")

	p.onResultEvent(watcher.Event{Path: path, Op: watcher.OpCreate})
	waitFor(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.currentRace != nil
	}, "creation never ingested")
}

func TestPipelineResultsListing(t *testing.T) {
	resDir := t.TempDir()
	p := startTestPipeline(t, testSettings(t.TempDir(), resDir))

	writeResult(t, resDir, "001", 5, 2)
	summaries, err := p.Results()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 5, summaries[0].Event)
	assert.Equal(t, 2, summaries[0].Heat)
}
