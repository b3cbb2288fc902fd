package log

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents log level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var zapLevels = map[Level]zapcore.Level{
	LevelDebug: zapcore.DebugLevel,
	LevelInfo:  zapcore.InfoLevel,
	LevelWarn:  zapcore.WarnLevel,
	LevelError: zapcore.ErrorLevel,
}

// Logger provides structured logging on top of zap.
type Logger struct {
	zl    *zap.Logger
	level zap.AtomicLevel
}

// NewLogger creates a JSON logger writing to stderr at the specified level.
func NewLogger(level Level) *Logger {
	atom := zap.NewAtomicLevelAt(zapLevels[level])
	core := zapcore.NewCore(newEncoder(), zapcore.Lock(os.Stderr), atom)
	return &Logger{zl: zap.New(core), level: atom}
}

// NewFileLogger creates a JSON logger writing to path (or stderr when path is empty).
func NewFileLogger(level Level, path string) (*Logger, error) {
	if path == "" {
		return NewLogger(level), nil
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevels[level])
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig = encoderConfig()
	cfg.Sampling = nil
	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{zl: zl, level: cfg.Level}, nil
}

// FromZap wraps an existing zap logger; used by tests with zaptest/observer.
// The wrapped core keeps its own level; SetLevel can only narrow it further.
func FromZap(zl *zap.Logger) *Logger {
	return &Logger{zl: zl, level: zap.NewAtomicLevelAt(zapcore.DebugLevel)}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return FromZap(zap.NewNop())
}

// Named returns a child logger tagged with a component name.
func (l *Logger) Named(component string) *Logger {
	return &Logger{zl: l.zl.Named(component), level: l.level}
}

// SetLevel sets the log level. Children created with Named share it.
func (l *Logger) SetLevel(level Level) {
	l.level.SetLevel(zapLevels[level])
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

func (l *Logger) log(level Level, message string, fields map[string]interface{}) {
	if !l.level.Enabled(zapLevels[level]) {
		return
	}
	ce := l.zl.Check(zapLevels[level], message)
	if ce == nil {
		return
	}
	ce.Write(toZapFields(fields)...)
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields map[string]interface{}) {
	l.log(LevelDebug, message, fields)
}

// Info logs an info message
func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.log(LevelInfo, message, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields map[string]interface{}) {
	l.log(LevelWarn, message, fields)
}

// Error logs an error message
func (l *Logger) Error(message string, fields map[string]interface{}) {
	l.log(LevelError, message, fields)
}

// LogProbeResult logs one probe outcome
func (l *Logger) LogProbeResult(source string, target string, success bool, rtt time.Duration, err error) {
	fields := map[string]interface{}{
		"source":  source,
		"target":  target,
		"success": success,
		"rtt_ms":  rtt.Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	if success {
		l.Debug("probe result", fields)
	} else {
		l.Info("probe failed", fields)
	}
}

// LogTransition logs a state change
func (l *Logger) LogTransition(from, to, event, session string) {
	l.Info("monitor state changed", map[string]interface{}{
		"from":    from,
		"to":      to,
		"event":   event,
		"session": session,
	})
}

// LogConfigLoad logs a config load event
func (l *Logger) LogConfigLoad(success bool, path string, err error) {
	fields := map[string]interface{}{
		"path": path,
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	if success {
		l.Info("config loaded", fields)
	} else {
		l.Error("config load failed", fields)
	}
}

// LogError logs a general error
func (l *Logger) LogError(component string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["component"] = component
	if err != nil {
		fields["error"] = err.Error()
	}
	l.Error("error occurred", fields)
}

// ParseLevel parses a log level string
func ParseLevel(levelStr string) Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func toZapFields(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for key, value := range fields {
		out = append(out, zap.Any(key, value))
	}
	return out
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func newEncoder() zapcore.Encoder {
	return zapcore.NewJSONEncoder(encoderConfig())
}
