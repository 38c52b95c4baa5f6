package utils

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	loggerMu sync.RWMutex
	logger   = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// InitLogger configures the global logger. When file is empty, logs go to
// stderr; otherwise they are written through a rotating lumberjack writer.
func InitLogger(file string, maxSizeMB, maxBackups, maxAgeDays int, compress bool, level string) {
	var out io.Writer = os.Stderr
	if file != "" {
		out = &lumberjack.Logger{
			Filename:   file,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   compress,
		}
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	loggerMu.Lock()
	logger = zerolog.New(out).With().Timestamp().Logger().Level(lvl)
	loggerMu.Unlock()
}

// SetLogLevel adjusts the level of the current logger without replacing it.
func SetLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	loggerMu.Lock()
	logger = logger.Level(lvl)
	loggerMu.Unlock()
}

// SetLoggerForTest swaps the global logger. Tests use this to capture output.
func SetLoggerForTest(l zerolog.Logger) {
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

func currentLogger() zerolog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// withFields attaches alternating key/value pairs to an event.
func withFields(e *zerolog.Event, kv []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		e = e.Interface(key, kv[i+1])
	}
	return e
}

// Debug logs a debug message with alternating key/value pairs.
func Debug(msg string, kv ...interface{}) {
	l := currentLogger()
	withFields(l.Debug(), kv).Msg(msg)
}

// Info logs an info message with alternating key/value pairs.
func Info(msg string, kv ...interface{}) {
	l := currentLogger()
	withFields(l.Info(), kv).Msg(msg)
}

// Warn logs a warning with alternating key/value pairs.
func Warn(msg string, kv ...interface{}) {
	l := currentLogger()
	withFields(l.Warn(), kv).Msg(msg)
}

// Error logs an error with alternating key/value pairs.
func Error(msg string, kv ...interface{}) {
	l := currentLogger()
	withFields(l.Error(), kv).Msg(msg)
}
