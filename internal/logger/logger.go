package logger

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var log atomic.Pointer[slog.Logger]

func init() {
	SetOutput(os.Stderr)
}

// SetOutput rebuilds the package logger writing to w. Level and format are
// taken from MONUMENTD_DEBUG and MONUMENTD_LOG_FORMAT.
func SetOutput(w io.Writer) {
	level := slog.LevelInfo
	if os.Getenv("MONUMENTD_DEBUG") == "true" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if os.Getenv("MONUMENTD_LOG_FORMAT") == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	log.Store(slog.New(handler))
}

// With returns a child logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return log.Load().With(args...)
}

func Logger() *slog.Logger {
	return log.Load()
}

func Debug(msg string, args ...any) {
	log.Load().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	log.Load().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	log.Load().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	log.Load().Error(msg, args...)
}

func Fatal(msg string, args ...any) {
	log.Load().Error(msg, args...)
	os.Exit(1)
}
