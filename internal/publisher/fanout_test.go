package publisher

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanecast/lanecast/internal/conf"
)

type recordingSender struct {
	mu    sync.Mutex
	sends map[uuid.UUID][][]byte
	// block holds device ids whose sends hang until the context expires.
	block map[uuid.UUID]bool
}

func newRecordingSender() *recordingSender {
	return &recordingSender{
		sends: make(map[uuid.UUID][][]byte),
		block: make(map[uuid.UUID]bool),
	}
}

func (s *recordingSender) Send(ctx context.Context, id uuid.UUID, png []byte) error {
	s.mu.Lock()
	blocked := s.block[id]
	s.mu.Unlock()
	if blocked {
		<-ctx.Done()
		return ctx.Err()
	}
	s.mu.Lock()
	s.sends[id] = append(s.sends[id], png)
	s.mu.Unlock()
	return nil
}

func (s *recordingSender) count(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sends[id])
}

func (s *recordingSender) waitFor(t *testing.T, id uuid.UUID, n int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if s.count(id) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("device %s received %d frames, want %d", id, s.count(id), n)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestFanOut(sender Sender, timeout time.Duration) *FanOut {
	return NewFanOut(sender, timeout, testLogger(), nil)
}

func statusFor(t *testing.T, f *FanOut, id uuid.UUID) DeviceStatus {
	t.Helper()
	for _, st := range f.Devices() {
		if st.ID == id {
			return st
		}
	}
	t.Fatalf("device %s not in status", id)
	return DeviceStatus{}
}

func TestUpdateDevicesReconciles(t *testing.T) {
	sender := newRecordingSender()
	f := newTestFanOut(sender, time.Second)
	defer f.Close()

	idA := uuid.New()
	idB := uuid.New()

	f.UpdateDevices([]Device{{ID: idA, Name: "Left"}})
	require.True(t, f.SetEnabled(idA, true))

	f.UpdateDevices([]Device{
		{ID: idA, Name: "Left-renamed"},
		{ID: idB, Name: "Right"},
	})

	stA := statusFor(t, f, idA)
	assert.Equal(t, "Left-renamed", stA.Name, "survivor adopts the refreshed name")
	assert.True(t, stA.Enabled, "survivor keeps its enabled flag")

	stB := statusFor(t, f, idB)
	assert.False(t, stB.Enabled, "new devices join disabled")

	f.UpdateDevices([]Device{{ID: idB, Name: "Right"}})
	assert.Len(t, f.Devices(), 1, "vanished devices are removed")
}

func TestPublishOnlyToEnabled(t *testing.T) {
	sender := newRecordingSender()
	f := newTestFanOut(sender, time.Second)
	defer f.Close()

	enabled := uuid.New()
	disabled := uuid.New()
	f.UpdateDevices([]Device{{ID: enabled, Name: "on"}, {ID: disabled, Name: "off"}})
	f.SetEnabled(enabled, true)

	f.Publish([]byte{1})
	sender.waitFor(t, enabled, 1)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, sender.count(disabled))
}

func TestBlockedDeviceDoesNotDelaySibling(t *testing.T) {
	sender := newRecordingSender()
	f := newTestFanOut(sender, 2*time.Second)
	defer f.Close()

	slow := uuid.New()
	fast := uuid.New()
	sender.mu.Lock()
	sender.block[slow] = true
	sender.mu.Unlock()

	f.UpdateDevices([]Device{{ID: slow, Name: "slow"}, {ID: fast, Name: "fast"}})
	f.SetEnabled(slow, true)
	f.SetEnabled(fast, true)

	start := time.Now()
	f.Publish([]byte{1})
	sender.waitFor(t, fast, 1)
	assert.Less(t, time.Since(start), time.Second,
		"responsive device must be served while the other blocks")
}

func TestFramesCoalesceToLatest(t *testing.T) {
	sender := newRecordingSender()
	f := newTestFanOut(sender, time.Second)
	defer f.Close()

	id := uuid.New()
	sender.mu.Lock()
	sender.block[id] = true
	sender.mu.Unlock()

	f.UpdateDevices([]Device{{ID: id, Name: "busy"}})
	f.SetEnabled(id, true)

	// The worker grabs the first frame and blocks on it; everything
	// published meanwhile collapses to the newest.
	f.Publish([]byte{1})
	time.Sleep(20 * time.Millisecond)
	for i := byte(2); i <= 9; i++ {
		f.Publish([]byte{i})
	}

	sender.mu.Lock()
	sender.block[id] = false
	sender.mu.Unlock()

	sender.waitFor(t, id, 1)
	time.Sleep(100 * time.Millisecond)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	frames := sender.sends[id]
	require.NotEmpty(t, frames)
	assert.LessOrEqual(t, len(frames), 2, "intermediate frames must coalesce")
	assert.Equal(t, byte(9), frames[len(frames)-1][0], "latest frame wins")
}

func TestDeliveryFailureRecordedPerDevice(t *testing.T) {
	sender := newRecordingSender()
	f := newTestFanOut(sender, 30*time.Millisecond)
	defer f.Close()

	id := uuid.New()
	sender.mu.Lock()
	sender.block[id] = true
	sender.mu.Unlock()

	f.UpdateDevices([]Device{{ID: id, Name: "broken"}})
	f.SetEnabled(id, true)
	f.Publish([]byte{1})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if statusFor(t, f, id).LastErr != "" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("delivery failure never surfaced in device status")
}

func TestSetEnabledUnknownDevice(t *testing.T) {
	f := newTestFanOut(newRecordingSender(), time.Second)
	defer f.Close()
	assert.False(t, f.SetEnabled(uuid.New(), true))
}

func TestStaticDiscovery(t *testing.T) {
	id := uuid.New()
	src := NewStaticDiscovery([]conf.StaticDevice{
		{ID: id.String(), Name: "wall"},
		{ID: "not-a-uuid", Name: "bogus"},
	})

	var got []Device
	require.NoError(t, src.Start(context.Background(), func(devs []Device) { got = devs }))
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, "wall", got[0].Name)
}
