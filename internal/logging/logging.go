// Package logging wraps zerolog behind a small package-level API so
// the rest of the pipeline logs structured fields without carrying a
// logger around.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level  string // trace|debug|info|warn|error (default info)
	Format string // json|console (default json)
	Output io.Writer
}

var (
	mu  sync.RWMutex
	log = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// Init configures the global logger. Safe to call more than once;
// the last call wins.
func Init(cfg Config) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	l := zerolog.New(out).Level(lvl).With().Timestamp().Logger()

	mu.Lock()
	log = l
	mu.Unlock()
}

// L returns the current global logger.
func L() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func Debug() *zerolog.Event { l := L(); return l.Debug() }
func Info() *zerolog.Event  { l := L(); return l.Info() }
func Warn() *zerolog.Event  { l := L(); return l.Warn() }
func Error() *zerolog.Event { l := L(); return l.Error() }
