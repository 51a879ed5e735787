// Package logger provides structured logging using zerolog.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Config represents logger configuration.
type Config struct {
	Level string // "debug", "info", "warn", "error"
	File  string // log file path; empty logs to stderr
	// Out overrides the console writer; used by tests and the CLI.
	Out io.Writer
}

// Init initializes the global zerolog logger with the given configuration.
// The returned function closes the log file, if any.
func Init(cfg Config) (func() error, error) {
	level := parseLevel(cfg.Level)
	closeFn := func() error { return nil }

	zerolog.SetGlobalLevel(level)
	zerolog.TimestampFieldName = "time"
	zerolog.LevelFieldName = "level"
	zerolog.MessageFieldName = "message"

	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		parts := strings.Split(file, string(filepath.Separator))
		if len(parts) > 1 {
			return filepath.Join(parts[len(parts)-2:]...) + ":" + strconv.Itoa(line)
		}
		return filepath.Base(file) + ":" + strconv.Itoa(line)
	}

	// ConsoleWriter for the terminal, JSON for files
	var logger zerolog.Logger
	if cfg.File == "" {
		out := cfg.Out
		if out == nil {
			out = os.Stderr
		}
		zerolog.TimeFieldFormat = time.TimeOnly
		console := zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.TimeOnly,
		}
		if level == zerolog.DebugLevel {
			// Caller only for DEBUG level
			console.PartsOrder = []string{"time", "level", "message", "caller"}
			console.FormatCaller = func(i interface{}) string {
				return "(" + i.(string) + ")"
			}
			logger = zerolog.New(console).With().Timestamp().Caller().Logger()
		} else {
			logger = zerolog.New(console).With().Timestamp().Logger()
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return closeFn, errors.Wrap(err, "failed to create log directory")
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return closeFn, errors.Wrap(err, "failed to open log file")
		}
		closeFn = f.Close

		zerolog.TimeFieldFormat = time.RFC3339
		base := zerolog.New(f).With().Timestamp()
		if level == zerolog.DebugLevel {
			logger = base.Caller().Logger()
		} else {
			logger = base.Logger()
		}
	}
	zerolog.DefaultContextLogger = &logger
	zlog.Logger = logger

	return closeFn, nil
}

// parseLevel parses the log level string.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
