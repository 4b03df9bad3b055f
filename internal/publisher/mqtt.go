package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/lanecast/lanecast/internal/conf"
	"github.com/lanecast/lanecast/internal/errors"
)

const (
	connectTimeout      = 10 * time.Second
	disconnectQuiesceMs = 250 // time allowed for a clean disconnect
)

// announcement is the JSON payload devices publish on the discovery topic.
type announcement struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MQTT is the broker-backed transport: it delivers frames as retained
// messages on per-device topics and learns the device set from an announce
// topic. Devices re-announce periodically; one that stays silent past the
// TTL is treated as gone.
type MQTT struct {
	cfg    conf.MQTTSettings
	logger *slog.Logger
	client mqtt.Client

	mu       sync.Mutex
	onUpdate func([]Device)
	seen     *gocache.Cache
}

// NewMQTT builds the transport; Connect must be called before use.
func NewMQTT(cfg conf.MQTTSettings, logger *slog.Logger) *MQTT {
	ttl := cfg.DeviceTTL
	if ttl <= 0 {
		ttl = 90 * time.Second
	}
	return &MQTT{
		cfg:    cfg,
		logger: logger,
		seen:   gocache.New(ttl, ttl/3),
	}
}

// Connect establishes the broker session.
func (m *MQTT) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(m.cfg.Broker)
	opts.SetClientID(fmt.Sprintf("lanecast-%s", uuid.NewString()[:8]))
	if m.cfg.Username != "" {
		opts.SetUsername(m.cfg.Username)
		opts.SetPassword(m.cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetOnConnectHandler(m.onConnect)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		m.logger.Warn("broker connection lost", "error", err)
	})

	m.client = mqtt.NewClient(opts)
	token := m.client.Connect()

	timeout := connectTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !token.WaitTimeout(timeout) {
		return errors.Newf("broker connect timed out after %v", timeout).
			Component("publisher").
			Category(errors.CategoryTimeout).
			Context("broker", m.cfg.Broker).
			Build()
	}
	if err := token.Error(); err != nil {
		return errors.New(err).
			Component("publisher").
			Category(errors.CategoryNetwork).
			Context("broker", m.cfg.Broker).
			Build()
	}
	m.logger.Info("connected to broker", "broker", m.cfg.Broker)
	return nil
}

// Send publishes one frame as a retained message so a device that
// reconnects immediately sees the current board.
func (m *MQTT) Send(ctx context.Context, deviceID uuid.UUID, png []byte) error {
	if m.client == nil || !m.client.IsConnected() {
		return errors.Newf("not connected to broker").
			Component("publisher").
			Category(errors.CategoryNetwork).
			Build()
	}
	topic := fmt.Sprintf("%s/%s/frame", m.cfg.TopicPrefix, deviceID)
	token := m.client.Publish(topic, 1, true, png)

	timeout := connectTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !token.WaitTimeout(timeout) {
		return errors.Newf("publish timed out").
			Component("publisher").
			Category(errors.CategoryTimeout).
			Context("topic", topic).
			Build()
	}
	return token.Error()
}

// Start begins discovery: onUpdate is invoked with the full device set
// whenever a device appears, renames, or expires.
func (m *MQTT) Start(_ context.Context, onUpdate func([]Device)) error {
	m.mu.Lock()
	m.onUpdate = onUpdate
	m.mu.Unlock()

	// Expiry counts as a topology change.
	m.seen.OnEvicted(func(string, any) { m.report() })

	if m.client == nil || !m.client.IsConnected() {
		return errors.Newf("not connected to broker").
			Component("publisher").
			Category(errors.CategoryNetwork).
			Build()
	}
	return m.subscribe()
}

// Stop halts discovery updates. The broker session stays up for Send.
func (m *MQTT) Stop() {
	m.mu.Lock()
	m.onUpdate = nil
	m.mu.Unlock()
	if m.client != nil && m.client.IsConnected() {
		m.client.Unsubscribe(m.cfg.DiscoveryTopic)
	}
}

// Close tears down the broker session.
func (m *MQTT) Close() {
	if m.client != nil && m.client.IsConnected() {
		m.client.Disconnect(disconnectQuiesceMs)
	}
}

func (m *MQTT) onConnect(_ mqtt.Client) {
	m.mu.Lock()
	active := m.onUpdate != nil
	m.mu.Unlock()
	// Re-subscribe after a reconnect; paho does not restore subscriptions
	// on a clean session.
	if active {
		if err := m.subscribe(); err != nil {
			m.logger.Error("discovery resubscribe failed", "error", err)
		}
	}
}

func (m *MQTT) subscribe() error {
	token := m.client.Subscribe(m.cfg.DiscoveryTopic, 1, m.handleAnnouncement)
	if !token.WaitTimeout(connectTimeout) {
		return errors.Newf("discovery subscribe timed out").
			Component("publisher").
			Category(errors.CategoryTimeout).
			Context("topic", m.cfg.DiscoveryTopic).
			Build()
	}
	return token.Error()
}

func (m *MQTT) handleAnnouncement(_ mqtt.Client, msg mqtt.Message) {
	var ann announcement
	if err := json.Unmarshal(msg.Payload(), &ann); err != nil {
		m.logger.Debug("malformed announcement", "error", err)
		return
	}
	id, err := uuid.Parse(ann.ID)
	if err != nil {
		m.logger.Debug("announcement with bad device id", "id", ann.ID)
		return
	}

	prev, known := m.seen.Get(id.String())
	m.seen.SetDefault(id.String(), Device{ID: id, Name: ann.Name})
	// A refresh with no change only extends the TTL.
	if known && prev.(Device).Name == ann.Name {
		return
	}
	m.report()
}

func (m *MQTT) report() {
	m.mu.Lock()
	onUpdate := m.onUpdate
	m.mu.Unlock()
	if onUpdate == nil {
		return
	}
	items := m.seen.Items()
	devices := make([]Device, 0, len(items))
	for _, item := range items {
		devices = append(devices, item.Object.(Device))
	}
	onUpdate(devices)
}
