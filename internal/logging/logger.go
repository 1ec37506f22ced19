package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// DefaultBufferSize is the number of recent entries kept for /api/logs.
const DefaultBufferSize = 1000

// Module names passed to GetLogger. Each can get its own level through
// Config.Modules (the logging.<module> settings).
const (
	ModuleMain       = "main"       // startup and shutdown
	ModuleSupervisor = "supervisor" // encoder lifecycle and status transitions
	ModuleEncoder    = "ffmpeg"     // encoder output, one record per line
	ModuleAPI        = "api"        // control API handlers
	ModuleHTTP       = "http"       // request log
	ModuleConfig     = "config"     // launch config file reloads
)

// Logger is a duck-typed interface satisfied by *slog.Logger.
// Use this interface instead of *slog.Logger to decouple from the concrete type.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var (
	moduleLoggers   = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	globalConfig    Config
	globalLevelVar  = &slog.LevelVar{} // default level
	isInitialized   bool
	mutex           sync.RWMutex
	logBuffer       *RingBuffer
	logCallback     LogCallback
)

// Config represents logging configuration.
type Config struct {
	Level      string            `toml:"level"`
	Format     string            `toml:"format"`
	Modules    map[string]string `toml:"modules"`
	BufferSize int               `toml:"buffer_size"`
}

// Initialize sets up the logging system.
func Initialize(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	globalConfig = config
	isInitialized = true

	size := config.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	logBuffer = NewRingBuffer(size)

	globalLevelVar.Set(levelFor(""))

	// Loggers handed out earlier keep their LevelVar, so they follow the new
	// level; the map entry is rebuilt so later lookups get the configured format.
	for module, levelVar := range moduleLevelVars {
		levelVar.Set(levelFor(module))
		moduleLoggers[module] = slog.New(createHandler(config.Format, levelVar)).With("module", module)
	}

	slog.SetDefault(slog.New(createHandler(config.Format, globalLevelVar)))
}

// levelFor resolves the configured level of module: its own setting, then
// the global level, then info. Callers hold mutex.
func levelFor(module string) slog.Level {
	if !isInitialized {
		return slog.LevelInfo
	}
	if l := parseLevel(globalConfig.Modules[module]); module != "" && l != nil {
		return *l
	}
	if l := parseLevel(globalConfig.Level); l != nil {
		return *l
	}
	return slog.LevelInfo
}

// GetBuffer returns the log ring buffer for reading historical logs.
func GetBuffer() *RingBuffer {
	mutex.RLock()
	defer mutex.RUnlock()
	return logBuffer
}

// SetLogCallback sets a callback to be called for each new log entry.
// The callback must not log.
func SetLogCallback(callback LogCallback) {
	mutex.Lock()
	defer mutex.Unlock()
	logCallback = callback
}

// GetLogger returns the logger of module (one of the Module constants),
// creating it on first use. Every record carries a "module" attribute, which
// is what /api/logs filters on.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	if logger, exists := moduleLoggers[module]; exists {
		mutex.RUnlock()
		return logger
	}
	mutex.RUnlock()

	mutex.Lock()
	defer mutex.Unlock()
	if logger, exists := moduleLoggers[module]; exists {
		return logger
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(levelFor(module))

	logger := slog.New(createHandler(globalConfig.Format, levelVar)).With("module", module)
	moduleLoggers[module] = logger
	moduleLevelVars[module] = levelVar
	return logger
}

// createHandler builds the output chain for one logger: stdout when something
// reads it, the journal under systemd, and always the ring buffer behind
// /api/logs. level is a *slog.LevelVar so module levels can change later.
func createHandler(format string, level slog.Leveler) slog.Handler {
	var outputs []slog.Handler
	if stdoutAttached() {
		opts := &slog.HandlerOptions{Level: level}
		if format == "json" {
			outputs = append(outputs, slog.NewJSONHandler(os.Stdout, opts))
		} else {
			outputs = append(outputs, slog.NewTextHandler(os.Stdout, opts))
		}
	}
	if IsJournalAvailable() {
		outputs = append(outputs, NewJournalHandler(level))
	}
	// The buffer handler drops records until Initialize creates the buffer.
	outputs = append(outputs, NewBufferHandler(level))
	return newFanoutHandler(outputs...)
}

// stdoutAttached is false when stdout is closed or /dev/null, as under a
// systemd unit with StandardOutput=null.
func stdoutAttached() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&(os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0 || mode.IsRegular()
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) *slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		l := slog.LevelDebug
		return &l
	case "info":
		l := slog.LevelInfo
		return &l
	case "warn", "warning":
		l := slog.LevelWarn
		return &l
	case "error":
		l := slog.LevelError
		return &l
	default:
		return nil
	}
}
