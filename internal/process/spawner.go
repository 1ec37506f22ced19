package process

import (
	"log/slog"
	"time"
)

// Hooks are the observers a Spawner attaches to a new encoder.
// OnLine may be called concurrently for stdout and stderr. OnExit is called
// exactly once, after the last OnLine.
type Hooks struct {
	OnLine func(source, line string)
	OnExit func(exitCode int)
}

// Handle controls a spawned encoder. Interrupt and Kill only deliver the
// signal; they must not wait for the exit or call the hooks synchronously.
type Handle interface {
	ID() string
	Pid() int
	Interrupt() error
	Kill() error
}

// Spawner launches encoder processes.
type Spawner interface {
	Spawn(id string, argv []string, hooks Hooks) (Handle, error)
}

// ExecSpawner spawns real OS processes.
type ExecSpawner struct {
	// Logger receives lifecycle messages.
	Logger *slog.Logger
	// OutputLogger receives every output line, leveled by LogParser.
	OutputLogger *slog.Logger
	// LogParser classifies output lines. Nil logs everything at info.
	LogParser LogParser
	// GracefulTimeout only matters for Process.Run; the supervisor does its
	// own escalation.
	GracefulTimeout time.Duration
}

// Spawn starts argv and returns once the process exists.
func (s *ExecSpawner) Spawn(id string, argv []string, hooks Hooks) (Handle, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	proc := NewProcess(id, argv, logger.With("session", id))
	if s.OutputLogger != nil {
		proc.SetLogParser(s.OutputLogger.With("session", id), s.LogParser)
	} else if s.LogParser != nil {
		proc.SetLogParser(nil, s.LogParser)
	}
	proc.SetGracefulTimeout(s.GracefulTimeout)
	if hooks.OnLine != nil {
		proc.SetOutputHandler(OutputHandlerFunc(hooks.OnLine))
	}
	if hooks.OnExit != nil {
		proc.SetExitHandler(func(code int, _ error) { hooks.OnExit(code) })
	}

	if err := proc.Start(); err != nil {
		return nil, err
	}
	return proc, nil
}
