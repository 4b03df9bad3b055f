package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Consumer receives events from the bus. Handle runs on a bus worker
// goroutine; slow consumers should hand work off.
type Consumer interface {
	Name() string
	Handle(Event) error
}

// Config holds event bus tuning.
type Config struct {
	BufferSize int
	Workers    int
}

// DefaultConfig sizes the bus for a single pool's event rate. One worker
// keeps delivery ordered, which matters for frames: a device must never see
// an older frame after a newer one.
func DefaultConfig() Config {
	return Config{BufferSize: 256, Workers: 1}
}

// Stats is a snapshot of bus counters.
type Stats struct {
	Received       uint64
	Dropped        uint64
	ConsumerErrors uint64
}

// Bus delivers events to registered consumers without ever blocking the
// publisher.
type Bus struct {
	eventChan chan Event
	workers   int

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
	mu      sync.Mutex

	consumers []Consumer

	received       atomic.Uint64
	dropped        atomic.Uint64
	consumerErrors atomic.Uint64

	logger *slog.Logger
}

// NewBus creates a bus; workers start with the first registered consumer.
func NewBus(cfg Config, logger *slog.Logger) *Bus {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		eventChan: make(chan Event, cfg.BufferSize),
		workers:   cfg.Workers,
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
	}
}

// RegisterConsumer adds a consumer; names must be unique.
func (b *Bus) RegisterConsumer(c Consumer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.consumers {
		if existing.Name() == c.Name() {
			return fmt.Errorf("consumer %s already registered", c.Name())
		}
	}
	b.consumers = append(b.consumers, c)
	b.logger.Debug("registered consumer", "consumer", c.Name())

	if len(b.consumers) == 1 {
		b.start()
	}
	return nil
}

// TryPublish offers an event without blocking. A full buffer drops the
// event and returns false.
func (b *Bus) TryPublish(ev Event) bool {
	if !b.running.Load() {
		return false
	}
	select {
	case b.eventChan <- ev:
		b.received.Add(1)
		return true
	default:
		b.dropped.Add(1)
		b.logger.Debug("event dropped, buffer full", "event", ev.Name())
		return false
	}
}

// GetStats returns a counter snapshot.
func (b *Bus) GetStats() Stats {
	return Stats{
		Received:       b.received.Load(),
		Dropped:        b.dropped.Load(),
		ConsumerErrors: b.consumerErrors.Load(),
	}
}

// Shutdown stops the workers, draining in-flight events up to the timeout.
func (b *Bus) Shutdown(timeout time.Duration) error {
	if !b.running.Swap(false) {
		return nil
	}
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("event bus shutdown timed out after %v", timeout)
	}
}

func (b *Bus) start() {
	if b.running.Swap(true) {
		return
	}
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.worker(i)
	}
}

func (b *Bus) worker(id int) {
	defer b.wg.Done()
	logger := b.logger.With("worker_id", id)

	for {
		select {
		case <-b.ctx.Done():
			// Drain what is already queued before stopping.
			for {
				select {
				case ev := <-b.eventChan:
					b.dispatch(ev, logger)
				default:
					return
				}
			}
		case ev := <-b.eventChan:
			b.dispatch(ev, logger)
		}
	}
}

func (b *Bus) dispatch(ev Event, logger *slog.Logger) {
	b.mu.Lock()
	consumers := make([]Consumer, len(b.consumers))
	copy(consumers, b.consumers)
	b.mu.Unlock()

	for _, c := range consumers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.consumerErrors.Add(1)
					logger.Error("consumer panicked",
						"consumer", c.Name(), "event", ev.Name(), "panic", r)
				}
			}()
			if err := c.Handle(ev); err != nil {
				b.consumerErrors.Add(1)
				logger.Error("consumer error",
					"consumer", c.Name(), "event", ev.Name(), "error", err)
			}
		}()
	}
}
