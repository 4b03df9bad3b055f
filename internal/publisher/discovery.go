package publisher

import (
	"context"

	"github.com/google/uuid"

	"github.com/lanecast/lanecast/internal/conf"
)

// DiscoverySource reports the set of reachable display devices. Sources
// call onUpdate with the complete current set on every topology change.
type DiscoverySource interface {
	Start(ctx context.Context, onUpdate func([]Device)) error
	Stop()
}

// StaticDiscovery serves a fixed device list from configuration, for
// installs without broker-side discovery.
type StaticDiscovery struct {
	devices []Device
}

// NewStaticDiscovery parses configured device entries, skipping any with an
// unparsable id.
func NewStaticDiscovery(entries []conf.StaticDevice) *StaticDiscovery {
	var devices []Device
	for _, e := range entries {
		id, err := uuid.Parse(e.ID)
		if err != nil {
			continue
		}
		devices = append(devices, Device{ID: id, Name: e.Name})
	}
	return &StaticDiscovery{devices: devices}
}

// Start reports the fixed set once.
func (s *StaticDiscovery) Start(_ context.Context, onUpdate func([]Device)) error {
	onUpdate(s.devices)
	return nil
}

// Stop is a no-op for a static set.
func (s *StaticDiscovery) Stop() {}
