// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(cfg.Level.zerologLevel())

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel parses a level name as given on the command line or in a config
// file. "warning" is accepted as an alias of "warn".
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

// zerologLevel converts the level, falling back to info for unknown names.
func (l LogLevel) zerologLevel() zerolog.Level {
	level, err := ParseLevel(string(l))
	if err != nil {
		return zerolog.InfoLevel
	}
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Each page fetched (operation, page, items)
//   - Resume and truncation decisions (markers, skip)
//   - Cache operations (hit/miss, key, TTL) and conditional requests
//   - Model file change events
//
// Info: Normal operation events
//   - Pagination models loaded
//   - Batch pagination start/progress/completion
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Pagination stuck on a repeated token
//   - Rate limit throttling
//   - Retry attempts
//   - Cache errors (fallback to direct request)
//   - Failed model reloads (previous models kept)
//
// Error: Error conditions requiring attention
//   - Failed requests (after retries)
//   - Service unavailability
//   - Configuration errors
//
// Context Fields:
//   - component: Package emitting the event (pagination, client, cache, model, server)
//   - operation: Paginated operation name
//   - page: 1-based page number within one pagination
//   - items: Primary result key items on the page
//   - endpoint: HTTP path of the operation
//   - status_code: HTTP status code
//   - duration: Request duration
//   - error_class: Error classification (client, server, rate_limit, network)
//   - request_id: X-Request-Id sent with the request
