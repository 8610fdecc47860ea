package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevel string

var (
	GlobalLogLevel LogLevel = LogLevelInfo
)

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var (
	mu   sync.RWMutex
	base = zap.NewNop()
)

// Init builds the process-wide zap logger. mode is "prod" or "dev".
func Init(mode string, level LogLevel) error {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level.zap())

	built, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}

	mu.Lock()
	base = built
	GlobalLogLevel = level
	mu.Unlock()
	return nil
}

// UseCore swaps the underlying core, returning a func that restores the
// previous logger. Used by tests to capture output.
func UseCore(core zapcore.Core) func() {
	mu.Lock()
	prev := base
	base = zap.New(core)
	mu.Unlock()
	return func() {
		mu.Lock()
		base = prev
		mu.Unlock()
	}
}

// Sync flushes buffered entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}

func ParseLevel(s string) LogLevel {
	switch LogLevel(strings.ToLower(strings.TrimSpace(s))) {
	case LogLevelDebug:
		return LogLevelDebug
	case LogLevelWarn:
		return LogLevelWarn
	case LogLevelError:
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

func (l LogLevel) zap() zapcore.Level {
	switch l {
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

type Log struct {
	err    error
	fields []interface{}
}

func New() *Log {
	return &Log{}
}

func (l *Log) WithError(err error) *Log {
	return &Log{err: err, fields: l.fields}
}

// With returns a logger carrying extra key/value pairs.
func (l *Log) With(keysAndValues ...interface{}) *Log {
	fields := make([]interface{}, 0, len(l.fields)+len(keysAndValues))
	fields = append(fields, l.fields...)
	fields = append(fields, keysAndValues...)
	return &Log{err: l.err, fields: fields}
}

func (l *Log) sugar() *zap.SugaredLogger {
	mu.RLock()
	s := base.Sugar()
	mu.RUnlock()
	return s
}

func (l *Log) kv() []interface{} {
	if l.err == nil {
		return l.fields
	}
	return append(append([]interface{}{}, l.fields...), "error", l.err)
}

func (l *Log) Debug(msg string) {
	l.sugar().Debugw(msg, l.kv()...)
}

func (l *Log) Info(msg string) {
	l.sugar().Infow(msg, l.kv()...)
}

func (l *Log) Warn(msg string) {
	l.sugar().Warnw(msg, l.kv()...)
}

func (l *Log) Error(msg string) {
	l.sugar().Errorw(msg, l.kv()...)
}
