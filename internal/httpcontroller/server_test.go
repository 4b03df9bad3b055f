package httpcontroller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanecast/lanecast/internal/conf"
	"github.com/lanecast/lanecast/internal/pipeline"
	"github.com/lanecast/lanecast/internal/publisher"
	"github.com/lanecast/lanecast/internal/startlist"
)

func testServer(t *testing.T, startListDir string) *Server {
	t.Helper()
	settings := &conf.Settings{
		Realtime: conf.RealtimeSettings{
			StartListDir: startListDir,
			ResultDir:    t.TempDir(),
			Decoder: conf.DecoderSettings{
				Lanes: conf.MaxLanes, MinReadings: 2, MinValidTime: 0.30, MaxSpread: 0.30,
			},
			Scoreboard: conf.ScoreboardSettings{
				Title: "Test", Lanes: 6, BorderPct: 0.05, HeaderGapPct: 0.05,
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
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := pipeline.New(settings, publisher.NopSender{}, nil, nil, logger)
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background(), settings))
	t.Cleanup(p.Stop)

	return New(&conf.HTTPSettings{Listen: ":0"}, p, nil, logger)
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestGetFrame(t *testing.T) {
	s := testServer(t, t.TempDir())

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if rec := do(s, http.MethodGet, "/api/v1/frame", ""); rec.Code == http.StatusOK {
			assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
			assert.NotEmpty(t, rec.Body.Bytes())
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("frame endpoint never served a frame")
}

func TestGetEvents(t *testing.T) {
	dir := t.TempDir()
	content := "#007 Boys 100 Free\r\n"
	for i := 0; i < conf.MaxLanes; i++ {
		content += "\r\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, startlist.FileForEvent(7)), []byte(content), 0o644))

	s := testServer(t, dir)

	rec := do(s, http.MethodGet, "/api/v1/events", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var events []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.EqualValues(t, 7, events[0]["event"])
	assert.Equal(t, "Boys 100 Free", events[0]["description"])
}

func TestDeviceToggleUnknown(t *testing.T) {
	s := testServer(t, t.TempDir())

	rec := do(s, http.MethodPost,
		fmt.Sprintf("/api/v1/devices/%s/enabled", "0b210437-9d0b-4762-9a51-a8308bb66beb"),
		`{"enabled":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(s, http.MethodPost, "/api/v1/devices/not-a-uuid/enabled", `{"enabled":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetDevicesEmpty(t *testing.T) {
	s := testServer(t, t.TempDir())
	rec := do(s, http.MethodGet, "/api/v1/devices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestUpdateScoreboard(t *testing.T) {
	// The endpoint mutates the shared settings snapshot, so the snapshot
	// must exist. No config file is present; defaults apply.
	_, err := conf.Load()
	require.NoError(t, err)

	s := testServer(t, t.TempDir())

	rec := do(s, http.MethodPost, "/api/v1/scoreboard", `{"lanes":4,"title":"Finals"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 4, resp["lanes"])
	assert.Equal(t, "Finals", resp["title"])
	assert.Equal(t, 4, conf.Setting().Realtime.Scoreboard.Lanes)

	rec = do(s, http.MethodPost, "/api/v1/scoreboard", `{"lanes":0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 4, conf.Setting().Realtime.Scoreboard.Lanes,
		"rejected update leaves the snapshot untouched")

	rec = do(s, http.MethodPost, "/api/v1/scoreboard", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStatus(t *testing.T) {
	s := testServer(t, t.TempDir())
	rec := do(s, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Contains(t, status, "has_frame")
	assert.Contains(t, status, "devices")
}
