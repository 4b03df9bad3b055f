// Package publisher fans rendered frames out to display devices. Each
// device gets its own delivery goroutine so one blocked device never
// delays the others; if frames arrive faster than a device accepts them,
// intermediate frames are coalesced and only the latest is kept.
package publisher

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lanecast/lanecast/internal/errors"
	"github.com/lanecast/lanecast/internal/observability"
)

// Sender delivers one frame to one device. Implementations must honor the
// context deadline.
type Sender interface {
	Send(ctx context.Context, deviceID uuid.UUID, png []byte) error
}

// Device is discovery's view of one display target.
type Device struct {
	ID   uuid.UUID
	Name string
}

// DeviceStatus is the fan-out's view, including user and delivery state.
type DeviceStatus struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Enabled  bool      `json:"enabled"`
	LastSent time.Time `json:"last_sent,omitzero"`
	LastErr  string    `json:"last_error,omitempty"`
}

type device struct {
	name    string
	enabled bool

	mailbox chan []byte
	cancel  context.CancelFunc

	mu       sync.Mutex
	lastSent time.Time
	lastErr  string
}

// FanOut holds the live device set and delivers frames to enabled devices.
type FanOut struct {
	sender      Sender
	sendTimeout time.Duration
	logger      *slog.Logger
	metrics     *observability.PublishMetrics

	mu      sync.Mutex
	devices map[uuid.UUID]*device
	wg      sync.WaitGroup
	closed  bool
}

// NewFanOut wires a fan-out to its transport.
func NewFanOut(sender Sender, sendTimeout time.Duration, logger *slog.Logger, metrics *observability.PublishMetrics) *FanOut {
	return &FanOut{
		sender:      sender,
		sendTimeout: sendTimeout,
		logger:      logger,
		metrics:     metrics,
		devices:     make(map[uuid.UUID]*device),
	}
}

// UpdateDevices reconciles the known set against a discovery report. New
// identities join disabled, vanished identities are removed and their
// workers stopped, survivors keep their enabled flag and adopt the
// refreshed name.
func (f *FanOut) UpdateDevices(discovered []Device) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}

	seen := make(map[uuid.UUID]bool, len(discovered))
	for _, d := range discovered {
		seen[d.ID] = true
		if existing, ok := f.devices[d.ID]; ok {
			existing.name = d.Name
			continue
		}
		f.devices[d.ID] = f.startDeviceLocked(d)
		f.logger.Info("device discovered", "device", d.ID, "name", d.Name)
	}

	for id, dev := range f.devices {
		if !seen[id] {
			dev.cancel()
			delete(f.devices, id)
			f.logger.Info("device vanished", "device", id, "name", dev.name)
		}
	}
	f.updateGauges()
}

// SetEnabled toggles delivery for one device. Unknown identities are
// ignored.
func (f *FanOut) SetEnabled(id uuid.UUID, enabled bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	dev, ok := f.devices[id]
	if !ok {
		return false
	}
	dev.enabled = enabled
	f.logger.Info("device toggled", "device", id, "enabled", enabled)
	f.updateGauges()
	return true
}

// Publish offers the frame to every enabled device. It never blocks: a
// device whose mailbox is occupied has the stale frame replaced by this
// one. Delivery failures are recorded per device, never escalated.
func (f *FanOut) Publish(png []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, dev := range f.devices {
		if !dev.enabled {
			continue
		}
		f.offer(id, dev, png)
	}
}

// offer is the latest-wins mailbox handoff.
func (f *FanOut) offer(id uuid.UUID, dev *device, png []byte) {
	select {
	case dev.mailbox <- png:
		return
	default:
	}
	// Mailbox occupied: evict the stale frame, then try once more. A
	// concurrent take by the worker makes either select racy alone, but
	// the pair guarantees the newest frame is never silently lost.
	select {
	case <-dev.mailbox:
		if f.metrics != nil {
			f.metrics.FramesCoalesced.WithLabelValues(id.String()).Inc()
		}
	default:
	}
	select {
	case dev.mailbox <- png:
	default:
	}
}

// Devices returns a status snapshot sorted by name for stable display.
func (f *FanOut) Devices() []DeviceStatus {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]DeviceStatus, 0, len(f.devices))
	for id, dev := range f.devices {
		dev.mu.Lock()
		out = append(out, DeviceStatus{
			ID:       id,
			Name:     dev.name,
			Enabled:  dev.enabled,
			LastSent: dev.lastSent,
			LastErr:  dev.lastErr,
		})
		dev.mu.Unlock()
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Name != out[b].Name {
			return out[a].Name < out[b].Name
		}
		return out[a].ID.String() < out[b].ID.String()
	})
	return out
}

// Close stops all delivery workers and waits for them to exit.
func (f *FanOut) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	for _, dev := range f.devices {
		dev.cancel()
	}
	f.mu.Unlock()
	f.wg.Wait()
}

func (f *FanOut) startDeviceLocked(d Device) *device {
	ctx, cancel := context.WithCancel(context.Background())
	dev := &device{
		name:    d.Name,
		mailbox: make(chan []byte, 1),
		cancel:  cancel,
	}
	f.wg.Add(1)
	go f.deliveryLoop(ctx, d.ID, d.Name, dev)
	return dev
}

// deliveryLoop is one device's worker: take the latest frame from the
// mailbox, send with a bounded timeout, record the outcome.
func (f *FanOut) deliveryLoop(ctx context.Context, id uuid.UUID, name string, dev *device) {
	defer f.wg.Done()
	label := id.String()

	for {
		select {
		case <-ctx.Done():
			return
		case png := <-dev.mailbox:
			start := time.Now()
			sendCtx, cancel := context.WithTimeout(ctx, f.sendTimeout)
			err := f.sender.Send(sendCtx, id, png)
			cancel()

			dev.mu.Lock()
			if err != nil {
				dev.lastErr = err.Error()
			} else {
				dev.lastErr = ""
				dev.lastSent = time.Now()
			}
			dev.mu.Unlock()

			if err != nil {
				if f.metrics != nil {
					f.metrics.DeliveryErrors.WithLabelValues(label).Inc()
				}
				f.logger.Warn("frame delivery failed",
					"device", id, "name", name,
					"category", errors.CategoryOf(err), "error", err)
				continue
			}
			if f.metrics != nil {
				f.metrics.FramesDelivered.WithLabelValues(label).Inc()
				f.metrics.DeliveryLatency.Observe(time.Since(start).Seconds())
			}
		}
	}
}

func (f *FanOut) updateGauges() {
	if f.metrics == nil {
		return
	}
	enabled := 0
	for _, dev := range f.devices {
		if dev.enabled {
			enabled++
		}
	}
	f.metrics.DevicesKnown.Set(float64(len(f.devices)))
	f.metrics.DevicesEnabled.Set(float64(enabled))
}
