package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	defaultLogger zerolog.Logger
	once          sync.Once
)

// Init initializes the default logger. Level comes from LOG_LEVEL (debug,
// info, warn, error); LOG_PRETTY=true switches to the console writer for
// local runs. It is safe to call more than once.
func Init() {
	once.Do(func() {
		level := zerolog.InfoLevel
		if parsed, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL"))); err == nil && parsed != zerolog.NoLevel {
			level = parsed
		}

		var logger zerolog.Logger
		if os.Getenv("LOG_PRETTY") == "true" {
			logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		} else {
			logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		}
		defaultLogger = logger.Level(level)
	})
}

// Get returns the initialized default logger. The pointer is required for the
// level methods, which have pointer receivers.
func Get() *zerolog.Logger {
	Init()
	return &defaultLogger
}

// Info logs an informational message with alternating key/value args.
func Info(msg string, args ...any) {
	event(Get().Info(), args).Msg(msg)
}

// Warn logs a warning message with alternating key/value args.
func Warn(msg string, args ...any) {
	event(Get().Warn(), args).Msg(msg)
}

// Error logs an error message with alternating key/value args.
func Error(msg string, err error, args ...any) {
	event(Get().Error().Err(err), args).Msg(msg)
}

// Debug logs a debug message with alternating key/value args.
func Debug(msg string, args ...any) {
	event(Get().Debug(), args).Msg(msg)
}

func event(e *zerolog.Event, args []any) *zerolog.Event {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, args[i+1])
	}
	return e
}
