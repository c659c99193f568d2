package logx

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents logging severity.
type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
	LevelOff
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	case LevelOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a string into a Level, defaulting to Info.
func ParseLevel(level string) Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "FATAL":
		return LevelFatal
	case "OFF":
		return LevelOff
	default:
		return LevelInfo
	}
}

// Enabled reports whether the target level passes the logger's threshold.
func (l Level) Enabled(target Level) bool {
	return l <= target
}

// Fields is a map of structured log fields.
type Fields map[string]interface{}

// Format selects the output encoding.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Logger writes leveled, structured log lines through a Formatter.
type Logger struct {
	mu        sync.Mutex
	level     Level
	formatter Formatter
	writer    io.Writer
	exitFunc  func(int)
}

// NewLogger creates a logger with the given level and format.
func NewLogger(level Level, format Format) *Logger {
	var formatter Formatter
	if format == FormatJSON {
		formatter = &jsonFormatter{}
	} else {
		formatter = &consoleFormatter{}
	}

	return &Logger{
		level:     level,
		formatter: formatter,
		writer:    os.Stdout,
		exitFunc:  os.Exit,
	}
}

// SetLevel sets the log level threshold.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetOutput sets the output writer.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer = w
}

func (l *Logger) log(level Level, msg string, fields Fields, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.level.Enabled(level) {
		return
	}

	line := record{
		Time:    time.Now(),
		Level:   level,
		Message: msg,
		Fields:  fields,
		Err:     err,
	}

	out, fmtErr := l.formatter.Format(line)
	if fmtErr != nil {
		return
	}
	l.writer.Write(out)
}

func (l *Logger) exit(code int) {
	if l.exitFunc != nil {
		l.exitFunc(code)
	}
}

// ---------------------------------------------------------------------------
// Package-level default logger
// ---------------------------------------------------------------------------

var (
	defaultLogger *Logger
	defaultMu     sync.RWMutex
)

func init() {
	defaultLogger = NewLogger(LevelInfo, FormatConsole)
}

// SetDefaultLogger replaces the package-level logger.
func SetDefaultLogger(logger *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

func getDefault() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetLevel sets the level of the default logger.
func SetLevel(level Level) { getDefault().SetLevel(level) }

func Debug(msg string) { getDefault().log(LevelDebug, msg, nil, nil) }
func Info(msg string)  { getDefault().log(LevelInfo, msg, nil, nil) }
func Warn(msg string)  { getDefault().log(LevelWarn, msg, nil, nil) }
func Error(msg string) { getDefault().log(LevelError, msg, nil, nil) }

// Fatal logs at fatal level and exits.
func Fatal(msg string) {
	l := getDefault()
	l.log(LevelFatal, msg, nil, nil)
	l.exit(1)
}

func Debugf(format string, args ...interface{}) { logf(LevelDebug, format, args...) }
func Infof(format string, args ...interface{})  { logf(LevelInfo, format, args...) }
func Warnf(format string, args ...interface{})  { logf(LevelWarn, format, args...) }
func Errorf(format string, args ...interface{}) { logf(LevelError, format, args...) }

// Fatalf logs a formatted fatal message and exits.
func Fatalf(format string, args ...interface{}) {
	l := getDefault()
	logf(LevelFatal, format, args...)
	l.exit(1)
}

// WithFields starts an entry with the given fields.
func WithFields(fields Fields) *Entry {
	return newEntry(getDefault()).WithFields(fields)
}

// WithField starts an entry with a single field.
func WithField(key string, value interface{}) *Entry {
	return newEntry(getDefault()).WithField(key, value)
}

// WithError starts an entry carrying an error field.
func WithError(err error) *Entry {
	return newEntry(getDefault()).WithError(err)
}
