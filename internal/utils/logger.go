package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// LogLevel represents an enumeration of log levels
type LogLevel int

const (
	Critical LogLevel = 50
	Fatal    LogLevel = Critical
	Error    LogLevel = 40
	Warning  LogLevel = 30
	Info     LogLevel = 20
	Debug    LogLevel = 10
	NotSet   LogLevel = 0
)

// Logger provides structured logging with context.
// Output is JSON lines produced by zerolog, one per call.
type Logger struct {
	prefix        string
	logger        zerolog.Logger
	logLevel      LogLevel
	logLevelMutex sync.RWMutex
}

// NewLogger creates a new logger with a given prefix
func NewLogger(prefix string, logLevel ...LogLevel) *Logger {
	logLevelValue := Warning
	if len(logLevel) > 0 {
		logLevelValue = logLevel[0]
	}
	return NewLoggerWithWriter(os.Stdout, prefix, logLevelValue)
}

// NewLoggerWithWriter creates a logger writing to w. Tests use it to capture output.
func NewLoggerWithWriter(w io.Writer, prefix string, logLevel LogLevel) *Logger {
	return &Logger{
		prefix:   prefix,
		logger:   zerolog.New(w).With().Timestamp().Str("component", prefix).Logger(),
		logLevel: logLevel,
	}
}

// ParseLogLevel maps LOG_LEVEL style names onto LogLevel. Unknown names map to Info.
func ParseLogLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warning
	case "error":
		return Error
	case "critical", "fatal":
		return Critical
	default:
		return Info
	}
}

// SetLogLevel sets the logging level
func (l *Logger) SetLogLevel(logLevel LogLevel) {
	l.logLevelMutex.Lock()
	defer l.logLevelMutex.Unlock()
	l.logLevel = logLevel
}

func (l *Logger) enabled(level LogLevel) bool {
	l.logLevelMutex.RLock()
	defer l.logLevelMutex.RUnlock()
	return l.logLevel <= level
}

// Info logs an informational message
func (l *Logger) Info(msg string, keyvals ...interface{}) {
	if !l.enabled(Info) {
		return
	}
	l.logger.Info().Fields(fieldsFromKeyvals(keyvals)).Msg(msg)
}

// Error logs an error message
func (l *Logger) Error(msg string, keyvals ...interface{}) {
	if !l.enabled(Error) {
		return
	}
	l.logger.Error().Fields(fieldsFromKeyvals(keyvals)).Msg(msg)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	if !l.enabled(Warning) {
		return
	}
	l.logger.Warn().Fields(fieldsFromKeyvals(keyvals)).Msg(msg)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	if !l.enabled(Debug) {
		return
	}
	l.logger.Debug().Fields(fieldsFromKeyvals(keyvals)).Msg(msg)
}

// fieldsFromKeyvals pairs up keyvals. A trailing key without a value is dropped.
func fieldsFromKeyvals(keyvals []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		fields[fmt.Sprint(keyvals[i])] = keyvals[i+1]
	}
	return fields
}
