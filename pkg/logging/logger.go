// Package logging configures zerolog for the LegiScan client and hands out
// per-component loggers.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is a minimum log level as read from configuration.
type LogLevel string

// Accepted levels. Anything else logs at info.
const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Values of the "component" field, one per package that logs.
const (
	ComponentClient   = "legiscan-client"
	ComponentService  = "legiscan-service"
	ComponentQuota    = "legiscan-quota"
	ComponentPrefetch = "legiscan-prefetch"
	ComponentProxy    = "legiscan-proxy"
)

// Config selects level and output format.
type Config struct {
	Level LogLevel

	// Pretty switches from JSON lines to zerolog's console format.
	Pretty bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig logs JSON at info to stderr.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, Output: os.Stderr}
}

// Setup installs the global logger and returns it. Component loggers
// created afterwards with NewLogger inherit its output.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return log.Logger
}

func parseLevel(level LogLevel) zerolog.Level {
	name := strings.ToLower(strings.TrimSpace(string(level)))
	if name == "warning" {
		name = string(LevelWarn)
	}
	switch LogLevel(name) {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		l, _ := zerolog.ParseLevel(name)
		return l
	}
	return zerolog.InfoLevel
}

// NewLogger derives a logger tagged with component from the global logger.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// What goes where:
//
//	debug  cache hit, upstream fetch, TTL written (fields: op, key, ttl)
//	info   dataset reused on unchanged hash, dataset import, warm-up progress,
//	       proxy start and stop
//	warn   LegiScan status ERROR (alert), unreadable cache entry, quota near
//	       its limit, failed bill warm-up
//	error  transport failure (status_code, error_class), quota exhausted
