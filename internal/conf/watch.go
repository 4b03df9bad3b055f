package conf

import (
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	subMu       sync.Mutex
	subscribers []func(*Settings)
	watchOnce   sync.Once
)

// Subscribe registers a callback invoked with the new settings snapshot
// whenever the config file changes and reloads successfully. Callbacks run
// on viper's watch goroutine and should hand work off quickly.
func Subscribe(fn func(*Settings)) {
	subMu.Lock()
	defer subMu.Unlock()
	subscribers = append(subscribers, fn)
}

// WatchConfig starts watching the loaded config file for edits. Reloads
// producing invalid settings are logged and ignored; the previous snapshot
// stays in effect.
func WatchConfig(logger *slog.Logger) {
	watchOnce.Do(func() {
		if viper.ConfigFileUsed() == "" {
			logger.Debug("no config file in use, config watching disabled")
			return
		}
		viper.OnConfigChange(func(e fsnotify.Event) {
			next := &Settings{}
			if err := viper.Unmarshal(next); err != nil {
				logger.Warn("config reload failed, keeping previous settings",
					"file", e.Name, "error", err)
				return
			}
			if err := Validate(next); err != nil {
				logger.Warn("config reload rejected, keeping previous settings",
					"file", e.Name, "error", err)
				return
			}
			current.Store(next)
			logger.Info("configuration reloaded", "file", e.Name)
			notify(next)
		})
		viper.WatchConfig()
	})
}

func notify(s *Settings) {
	subMu.Lock()
	subs := make([]func(*Settings), len(subscribers))
	copy(subs, subscribers)
	subMu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}

// Update applies a mutation to a copy of the current settings, validates
// it, installs it as the new snapshot and notifies subscribers. It exists
// so in-process changes behave exactly like config file edits.
func Update(mutate func(*Settings)) error {
	s := Setting()
	next := *s
	mutate(&next)
	if err := Validate(&next); err != nil {
		return err
	}
	current.Store(&next)
	notify(&next)
	return nil
}
