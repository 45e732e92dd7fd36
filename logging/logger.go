package logging

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls InitLogger. Empty fields fall back to LOG_LEVEL,
// LOG_FORMAT and LOG_FILE from the environment.
type Options struct {
	Level  string
	Format string
	// File, when set, receives a copy of every log line with size-based rotation.
	File string
}

// InitLogger initializes the global logger with zerolog
func InitLogger(opts Options) {
	zerolog.TimeFieldFormat = time.RFC3339

	if opts.Level == "" {
		opts.Level = os.Getenv("LOG_LEVEL")
	}
	if opts.Format == "" {
		opts.Format = os.Getenv("LOG_FORMAT")
	}
	if opts.File == "" {
		opts.File = os.Getenv("LOG_FILE")
	}

	level := zerolog.InfoLevel
	if opts.Level != "" {
		if parsedLevel, err := zerolog.ParseLevel(opts.Level); err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	// Use console writer for development, JSON for production
	var out io.Writer = os.Stdout
	if opts.Format != "json" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	if opts.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    20, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		}
		out = zerolog.MultiLevelWriter(out, rotating)
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// Info logs an info message with optional fields
func Info() *zerolog.Event {
	return log.Info()
}

// Debug logs a debug message with optional fields
func Debug() *zerolog.Event {
	return log.Debug()
}

// Error logs an error message with optional fields
func Error() *zerolog.Event {
	return log.Error()
}

// Warn logs a warning message with optional fields
func Warn() *zerolog.Event {
	return log.Warn()
}

// Fatal logs a fatal message and exits
func Fatal() *zerolog.Event {
	return log.Fatal()
}

// ErrorWithRequest returns an error logger event with request context (IP, method, URL)
func ErrorWithRequest(r *http.Request) *zerolog.Event {
	return log.Error().
		Str("method", r.Method).
		Str("url", r.URL.String()).
		Str("client_ip", getClientIP(r))
}

// WarnWithRequest returns a warn logger event with request context (IP, method, URL)
func WarnWithRequest(r *http.Request) *zerolog.Event {
	return log.Warn().
		Str("method", r.Method).
		Str("url", r.URL.String()).
		Str("client_ip", getClientIP(r))
}

// getClientIP extracts the real client IP address from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
