package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu       sync.RWMutex
	log      zerolog.Logger = newLogger(os.Stderr, "INFO", "console")
	logLevel                = "INFO"
	logFile  *os.File
)

// Init (re)configures the global logger. An empty path logs to stderr.
// format is "json" or "console".
func Init(logPath, level, format string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	level = strings.ToUpper(strings.TrimSpace(level))
	if level == "" {
		level = "INFO"
	}

	var out io.Writer = os.Stderr
	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0750); err != nil {
			return fmt.Errorf("failed to create log directory %s: %w", filepath.Dir(logPath), err)
		}
		f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", logPath, err)
		}
		logFile = f
		out = f
	}

	logLevel = level
	log = newLogger(out, level, format)
	log.Debug().Str("level", level).Str("output", outputName(logPath)).Msg("Logger initialized")
	return nil
}

// SetOutput redirects the global logger, mainly for tests.
func SetOutput(w io.Writer, level string) {
	mu.Lock()
	defer mu.Unlock()
	logLevel = strings.ToUpper(level)
	log = newLogger(w, logLevel, "json")
}

// Level returns the configured level name.
func Level() string {
	mu.RLock()
	defer mu.RUnlock()
	return logLevel
}

func newLogger(w io.Writer, level, format string) zerolog.Logger {
	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime, NoColor: w != os.Stderr}
	}
	return zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func outputName(path string) string {
	if path == "" {
		return "stderr"
	}
	return path
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := log
	return &l
}

func Info(format string, v ...interface{}) {
	current().Info().Msgf(format, v...)
}

func Debug(format string, v ...interface{}) {
	current().Debug().Msgf(format, v...)
}

func Warn(format string, v ...interface{}) {
	current().Warn().Msgf(format, v...)
}

func Error(format string, v ...interface{}) {
	current().Error().Msgf(format, v...)
}

// Fatal logs and exits the process.
func Fatal(format string, v ...interface{}) {
	current().Fatal().Msgf(format, v...)
}

// Request writes a structured access log line at DEBUG.
func Request(method, route string, status int, duration time.Duration) {
	current().Debug().
		Str("method", method).
		Str("route", route).
		Int("status", status).
		Dur("duration", duration).
		Msg("request")
}

func CloseLogFiles() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	log = newLogger(os.Stderr, logLevel, "console")
}
