// Package logging initializes the structured loggers used across the
// application. Output goes to stderr as text for humans and optionally to a
// rotating log file as JSON.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lanecast/lanecast/internal/conf"
)

var (
	mu     sync.RWMutex
	root   *slog.Logger
	level  = new(slog.LevelVar)
	closer io.Closer
)

// Init configures the global loggers from settings. Safe to call once at
// startup before any ForService call.
func Init(cfg *conf.LogSettings) {
	mu.Lock()
	defer mu.Unlock()

	level.Set(parseLevel(cfg.Level))

	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	}
	if cfg.Path != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   true,
		}
		closer = rotator
		handlers = append(handlers,
			slog.NewJSONHandler(rotator, &slog.HandlerOptions{Level: level}))
	}

	root = slog.New(newFanoutHandler(handlers...))
	slog.SetDefault(root)
}

// ForService returns a logger tagged with the given service name.
func ForService(name string) *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if root == nil {
		return slog.Default().With("service", name)
	}
	return root.With("service", name)
}

// SetLevel changes the minimum level for all handlers at runtime. The name
// is parsed like the config value; unknown names fall back to info.
func SetLevel(name string) { level.Set(parseLevel(name)) }

// Close flushes and closes the log file, if one is open.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		err := closer.Close()
		closer = nil
		return err
	}
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
