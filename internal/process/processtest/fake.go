// Package processtest provides an in-memory Spawner for supervisor tests.
package processtest

import (
	"errors"
	"sync"

	"github.com/smazurov/restreamer/internal/process"
)

// ExitCodeInterrupted is what ffmpeg returns after a clean SIGINT shutdown.
const ExitCodeInterrupted = 255

// Handle is a fake encoder. By default it exits with ExitCodeInterrupted on
// Interrupt and with 137 on Kill.
type Handle struct {
	id    string
	pid   int
	hooks process.Hooks

	mu              sync.Mutex
	interrupts      int
	kills           int
	ignoreInterrupt bool

	exitOnce sync.Once
	exited   chan struct{}
}

// ID implements process.Handle.
func (h *Handle) ID() string { return h.id }

// Pid implements process.Handle.
func (h *Handle) Pid() int { return h.pid }

// Interrupt implements process.Handle.
func (h *Handle) Interrupt() error {
	h.mu.Lock()
	h.interrupts++
	ignore := h.ignoreInterrupt
	h.mu.Unlock()
	if !ignore {
		go h.Exit(ExitCodeInterrupted)
	}
	return nil
}

// Kill implements process.Handle.
func (h *Handle) Kill() error {
	h.mu.Lock()
	h.kills++
	h.mu.Unlock()
	go h.Exit(137)
	return nil
}

// IgnoreInterrupt makes the fake keep running after SIGINT.
func (h *Handle) IgnoreInterrupt() {
	h.mu.Lock()
	h.ignoreInterrupt = true
	h.mu.Unlock()
}

// Line delivers one output line to the supervisor.
func (h *Handle) Line(source, line string) {
	if h.hooks.OnLine != nil {
		h.hooks.OnLine(source, line)
	}
}

// Stderr delivers one stderr line.
func (h *Handle) Stderr(line string) { h.Line(process.SourceStderr, line) }

// Exit reports the exit once; later calls are ignored.
func (h *Handle) Exit(code int) {
	h.exitOnce.Do(func() {
		if h.hooks.OnExit != nil {
			h.hooks.OnExit(code)
		}
		close(h.exited)
	})
}

// Exited is closed after the exit hook returned.
func (h *Handle) Exited() <-chan struct{} { return h.exited }

// Interrupts returns how many times Interrupt was called.
func (h *Handle) Interrupts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupts
}

// Kills returns how many times Kill was called.
func (h *Handle) Kills() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.kills
}

// Spawner records spawn calls and hands out fake handles.
type Spawner struct {
	// Err, when set, is returned by Spawn instead of a handle.
	Err error
	// OnSpawn runs inside Spawn before it returns, e.g. to simulate an
	// encoder that dies immediately.
	OnSpawn func(h *Handle)

	mu      sync.Mutex
	handles []*Handle
	argv    [][]string
}

// Spawn implements process.Spawner.
func (s *Spawner) Spawn(id string, argv []string, hooks process.Hooks) (process.Handle, error) {
	s.mu.Lock()
	s.argv = append(s.argv, append([]string(nil), argv...))
	if s.Err != nil {
		s.mu.Unlock()
		return nil, s.Err
	}
	h := &Handle{id: id, pid: 1000 + len(s.handles), hooks: hooks, exited: make(chan struct{})}
	s.handles = append(s.handles, h)
	onSpawn := s.OnSpawn
	s.mu.Unlock()

	if onSpawn != nil {
		onSpawn(h)
	}
	return h, nil
}

// Count returns the number of Spawn calls.
func (s *Spawner) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.argv)
}

// Last returns the most recent handle, or nil.
func (s *Spawner) Last() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.handles) == 0 {
		return nil
	}
	return s.handles[len(s.handles)-1]
}

// LastArgs returns the argv of the most recent Spawn call.
func (s *Spawner) LastArgs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.argv) == 0 {
		return nil
	}
	return s.argv[len(s.argv)-1]
}

// ErrSpawn is a ready-made spawn failure.
var ErrSpawn = errors.New(`exec: "ffmpeg": executable file not found in $PATH`)
