package logging

import (
	"os"
	"time"

	charm "github.com/charmbracelet/log"
)

var globalLogger *charm.Logger

// Init configures the global logger. Called once during bootstrap.
func Init(level string) {
	logger := charm.NewWithOptions(os.Stderr, charm.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Prefix:          "badbot",
	})

	parsed, err := charm.ParseLevel(level)
	if err != nil {
		parsed = charm.InfoLevel
	}
	logger.SetLevel(parsed)

	globalLogger = logger
}

func get() *charm.Logger {
	if globalLogger == nil {
		Init("info")
	}
	return globalLogger
}

func Debug(format string, args ...interface{}) {
	get().Debugf(format, args...)
}

func Info(format string, args ...interface{}) {
	get().Infof(format, args...)
}

func Warn(format string, args ...interface{}) {
	get().Warnf(format, args...)
}

func Error(format string, args ...interface{}) {
	get().Errorf(format, args...)
}

func Fatal(format string, args ...interface{}) {
	get().Fatalf(format, args...)
}
