// Package logging provides config-driven, categorized, per-request
// structured logging for the symbolic execution service. Each core
// component, the engine, and the transport gets its own Category; output is gated by
// Config.Logging.DebugMode and written through a zap sink in JSON or
// text form, with a per-request Timer for time_seconds instrumentation.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names one of the service's five components, the symbolic
// engine, or the transport boundary: seven categories in all.
type Category string

const (
	CategoryConfig       Category = "config"
	CategoryValidator    Category = "validator"
	CategoryIsolation    Category = "isolation"
	CategoryGovernor     Category = "governor"
	CategoryOrchestrator Category = "orchestrator"
	CategoryEngine       Category = "engine"
	CategoryTransport    Category = "transport"
)

var (
	mu         sync.RWMutex
	loggers    = map[Category]*Logger{}
	debugMode  bool
	jsonFormat bool
	logDir     = ".symbolicd/logs"
	base       *zap.Logger
)

// Configure wires the package's sinks from a loaded Config. Call once
// at startup; subsequent Get calls build per-category loggers from this
// configuration.
func Configure(debug bool, format, dir string) error {
	mu.Lock()
	defer mu.Unlock()
	debugMode = debug
	jsonFormat = format == "json"
	if dir != "" {
		logDir = dir
	}
	loggers = map[Category]*Logger{}

	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	if !jsonFormat {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	built, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	base = built
	return nil
}

// Logger is a per-category wrapper around the shared zap sink.
type Logger struct {
	category Category
	zap      *zap.Logger
}

// Get returns (creating if needed) the Logger for category, using
// double-checked locking so concurrent first-use from multiple
// components doesn't race on construction.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	z := base
	if z == nil {
		z, _ = zap.NewProduction()
		base = z
	}
	l := &Logger{category: category, zap: z.With(zap.String("category", string(category)))}
	loggers[category] = l
	return l
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if !IsDebugMode() {
		return
	}
	l.zap.Debug(fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.zap.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.zap.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.zap.Error(fmt.Sprintf(format, args...))
}

// IsDebugMode reports whether debug-level logging is currently enabled.
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debugMode
}

// WithRequestID returns a RequestLogger correlating every subsequent
// log line with one request's isolation-unit identifier.
func (l *Logger) WithRequestID(requestID string) *RequestLogger {
	return &RequestLogger{logger: l, requestID: requestID}
}

// RequestLogger tags every log line with a request-correlation ID, the
// isolation unit's identifier for the lifetime of one operation.
type RequestLogger struct {
	logger    *Logger
	requestID string
}

func (r *RequestLogger) Debug(format string, args ...interface{}) {
	r.logger.Debug("[%s] "+format, append([]interface{}{r.requestID}, args...)...)
}

func (r *RequestLogger) Info(format string, args ...interface{}) {
	r.logger.Info("[%s] "+format, append([]interface{}{r.requestID}, args...)...)
}

func (r *RequestLogger) Warn(format string, args ...interface{}) {
	r.logger.Warn("[%s] "+format, append([]interface{}{r.requestID}, args...)...)
}

func (r *RequestLogger) Error(format string, args ...interface{}) {
	r.logger.Error("[%s] "+format, append([]interface{}{r.requestID}, args...)...)
}

// Timer measures one operation's wall-clock duration; StartTimer begins
// it, Stop logs and returns the elapsed seconds used as time_seconds.
type Timer struct {
	category  Category
	operation string
	start     time.Time
}

func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, operation: operation, start: time.Now()}
}

func (t *Timer) Stop() float64 {
	elapsed := time.Since(t.start).Seconds()
	Get(t.category).Debug("%s completed in %.4fs", t.operation, elapsed)
	return elapsed
}

// CloseAll flushes and releases every sink. Called from the process
// shutdown path alongside the isolation registry sweep.
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	if base != nil {
		_ = base.Sync()
	}
	loggers = map[Category]*Logger{}
}

// EnsureLogDir creates the configured log directory if text-format
// file output is requested; currently output goes to the zap sink
// (stderr/stdout) — this exists so a future file-output mode has a
// ready target directory, matching the teacher's workspace-relative
// dated-log-file convention.
func EnsureLogDir() error {
	mu.RLock()
	dir := logDir
	mu.RUnlock()
	if dir == "" {
		return nil
	}
	return os.MkdirAll(filepath.Clean(dir), 0o755)
}
