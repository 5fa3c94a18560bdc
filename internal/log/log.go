package log

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

// Format selects the output encoding of the global logger.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

var (
	mu     sync.RWMutex
	logger zerolog.Logger
	once   sync.Once
)

// initLogger installs a console logger on stderr at INFO if Setup was never
// called.
func initLogger() {
	once.Do(func() {
		mu.Lock()
		logger = newLogger(os.Stderr, FormatConsole, LevelInfo)
		mu.Unlock()
	})
}

// Setup replaces the global logger. Unknown formats fall back to console,
// unknown levels to INFO.
func Setup(w io.Writer, format Format, level Level) {
	once.Do(func() {})
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w, format, level)
}

func SetLevel(l Level) {
	initLogger()
	mu.Lock()
	defer mu.Unlock()
	logger = logger.Level(zerologLevel(l))
}

// ParseLevel maps a config string ("debug", "INFO", ...) to a Level.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func Debug(msg string, kv ...any) {
	event(LevelDebug).Fields(fields(kv)).Msg(msg)
}

func Info(msg string, kv ...any) {
	event(LevelInfo).Fields(fields(kv)).Msg(msg)
}

func Error(msg string, err error, kv ...any) {
	event(LevelError).Err(err).Fields(fields(kv)).Msg(msg)
}

// Logger returns the underlying zerolog logger for callers that want to
// build child loggers.
func Logger() zerolog.Logger {
	initLogger()
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func newLogger(w io.Writer, format Format, level Level) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if format == FormatJSON {
		return zerolog.New(w).
			Level(zerologLevel(level)).
			With().
			Timestamp().
			Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339Nano,
		NoColor:    true,
	}).
		Level(zerologLevel(level)).
		With().
		Timestamp().
		Logger()
}

func event(level Level) *zerolog.Event {
	initLogger()
	mu.RLock()
	l := logger
	mu.RUnlock()
	switch level {
	case LevelDebug:
		return l.Debug()
	case LevelError:
		return l.Error()
	default:
		return l.Info()
	}
}

func zerologLevel(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// fields turns key, value, key, value ... into a map. Non-string keys are
// skipped and a trailing key without value is ignored.
func fields(kv []any) map[string]any {
	out := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		out[key] = kv[i+1]
	}
	return out
}
