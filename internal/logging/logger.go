// Package logging wraps a process-wide zerolog logger.
//
// Commands call Init once after configuration is loaded; packages log through
// the level helpers:
//
//	logging.Info().Str("file", path).Int("rows", n).Msg("dataset loaded")
//	logging.Warn().Err(err).Msg("preprocessing fell back to input")
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error, disabled.
	Level string
	// Format is json or console.
	Format string
	// Caller adds file:line to each event.
	Caller bool
	// Timestamp adds a time field to each event.
	Timestamp bool
	// Output defaults to os.Stderr.
	Output io.Writer
	// File, when set, receives a JSON copy of every event.
	File string
}

// DefaultConfig returns console logging at warn level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:     "warn",
		Format:    "console",
		Timestamp: true,
		Output:    os.Stderr,
	}
}

var (
	log     zerolog.Logger
	logFile *os.File
	mu      sync.RWMutex
)

func init() {
	cfg := DefaultConfig()
	if os.Getenv("DATAPREP_QUIET_LOGS") == "1" {
		cfg.Level = "disabled"
	}
	_ = initLogger(cfg)
}

// Init reconfigures the global logger. It is safe to call more than once.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()
	return initLogger(cfg)
}

func initLogger(cfg Config) error {
	if cfg.Level == "" {
		cfg.Level = "warn"
	}
	if cfg.Format == "" {
		cfg.Format = "console"
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = cfg.Output
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logFile = f
		out = zerolog.MultiLevelWriter(out, f)
	}

	l := zerolog.New(out)
	if cfg.Timestamp {
		l = l.With().Timestamp().Logger()
	}
	if cfg.Caller {
		l = l.With().Caller().Logger()
	}
	log = l
	return nil
}

// ParseLevel converts a level name to a zerolog.Level. Unknown names map to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled", "off", "none":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns a copy of the global logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// With returns a child context of the global logger.
func With() zerolog.Context {
	mu.RLock()
	defer mu.RUnlock()
	return log.With()
}

func Debug() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Debug()
}

func Info() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Info()
}

func Warn() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Warn()
}

func Error() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Error()
}
