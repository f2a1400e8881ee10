// Package logger is the default smpp.Logger implementation: a thin,
// structured wrapper over the standard library's log.Logger. No
// third-party structured-logging library appears anywhere in the
// retrieved reference corpus -- every comparable client rolls its own
// Logger interface over stdlib log, so this stays stdlib too.
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/relaysms/smppclient/pkg/smpp"
)

// Level is a logging threshold.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// DefaultLogger implements smpp.Logger.
type DefaultLogger struct {
	level  Level
	fields map[string]interface{}
	logger *log.Logger
}

// NewDefaultLogger builds a DefaultLogger writing to stdout at the
// given threshold ("debug", "info", "warn", "error"; unrecognized
// values fall back to "info").
func NewDefaultLogger(level string) smpp.Logger {
	var logLevel Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}

	return &DefaultLogger{
		level:  logLevel,
		fields: make(map[string]interface{}),
		logger: log.New(os.Stdout, "", log.LstdFlags),
	}
}

func (l *DefaultLogger) Debug(msg string, fields ...interface{}) {
	if l.level <= LevelDebug {
		l.logWithFields("DEBUG", msg, fields...)
	}
}

func (l *DefaultLogger) Info(msg string, fields ...interface{}) {
	if l.level <= LevelInfo {
		l.logWithFields("INFO", msg, fields...)
	}
}

func (l *DefaultLogger) Warn(msg string, fields ...interface{}) {
	if l.level <= LevelWarn {
		l.logWithFields("WARN", msg, fields...)
	}
}

func (l *DefaultLogger) Error(msg string, fields ...interface{}) {
	if l.level <= LevelError {
		l.logWithFields("ERROR", msg, fields...)
	}
}

// WithFields returns a logger that folds fields into every subsequent
// record, layered on top of whatever this logger already carries --
// this is how ClientConfig.LogMetadata ends up attached to every event.
func (l *DefaultLogger) WithFields(fields map[string]interface{}) smpp.Logger {
	newFields := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}
	return &DefaultLogger{level: l.level, fields: newFields, logger: l.logger}
}

func (l *DefaultLogger) logWithFields(level string, msg string, fields ...interface{}) {
	parts := make([]string, 0, 2+len(l.fields)+len(fields)/2)
	parts = append(parts, fmt.Sprintf("[%s]", level), msg)

	for k, v := range l.fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}

	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			parts = append(parts, fmt.Sprintf("%v=%v", fields[i], fields[i+1]))
		} else {
			parts = append(parts, fmt.Sprintf("%v", fields[i]))
		}
	}

	l.logger.Println(strings.Join(parts, " "))
}
