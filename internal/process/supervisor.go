package process

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smazurov/restreamer/internal/config"
	"github.com/smazurov/restreamer/internal/ffmpeg"
	"github.com/smazurov/restreamer/internal/metrics"
)

// ConfigSource provides the launch configuration. It is read on every start.
type ConfigSource interface {
	Load(ctx context.Context) (config.LaunchConfig, error)
}

// EncoderArgs builds the full encoder argv for cfg.
func EncoderArgs(binary string, profile ffmpeg.Profile, cfg config.LaunchConfig) []string {
	return ffmpeg.BuildArgs(&ffmpeg.Params{
		Binary:    binary,
		SourceURL: cfg.SourceURL,
		OutputURL: ffmpeg.OutputURL(cfg.DestinationURLPrefix, cfg.StreamKey),
		Profile:   profile,
	})
}

// session is one encoder run. It is created when a start request reserves
// the encoder slot, before the process exists.
type session struct {
	id            string
	handle        Handle // nil until the spawn call returns
	startedAt     time.Time
	stopRequested bool
	exited        chan struct{}
}

// transition is a status change to report once the lock is released.
// seq orders transitions in the order they were applied.
type transition struct {
	seq       uint64
	sessionID string
	old, new  Status
}

// Supervisor owns at most one encoder process and the stream status record.
// All status and handle access goes through mu; callbacks run unlocked.
type Supervisor struct {
	opts   Options
	logger *slog.Logger

	mu           sync.Mutex
	status       Status
	session      *session
	lastExitCode *int
	lastExitAt   time.Time
	closed       bool
	seq          uint64

	// reportMu serializes reporting; reported is the seq of the last
	// transition handed to metrics and OnStateChange.
	reportMu sync.Mutex
	reported uint64

	wg sync.WaitGroup
}

// NewSupervisor creates a supervisor in the idle state.
func NewSupervisor(opts *Options) *Supervisor {
	if opts == nil {
		opts = &Options{}
	}
	o := opts.withDefaults()
	return &Supervisor{
		opts:   o,
		logger: o.Logger,
		status: InitialStatus(),
	}
}

// Status returns the current status. It never blocks on process I/O.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Info returns details about the current or last encoder session.
func (s *Supervisor) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := Info{Status: s.status, LastExitAt: s.lastExitAt}
	if s.lastExitCode != nil {
		code := *s.lastExitCode
		info.LastExitCode = &code
	}
	if sess := s.session; sess != nil {
		info.SessionID = sess.id
		info.StartedAt = sess.startedAt
		info.Running = sess.handle != nil
		info.Stopping = sess.stopRequested
		if sess.handle != nil {
			info.PID = sess.handle.Pid()
		}
	}
	return info
}

// Start launches the encoder using the configuration from source.
// It returns as soon as the process is spawned; it does not wait for the
// stream to come up. Errors are *StreamError and have already been applied
// to the status, except CONFLICT which leaves the status untouched.
func (s *Supervisor) Start(ctx context.Context, source ConfigSource) (*Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		metrics.RecordStart(metrics.ResultConflict)
		s.logger.Warn("Start rejected, supervisor is shut down")
		return nil, NewStreamError(ErrCodeConflict, MsgShuttingDown, nil)
	}
	if s.session != nil {
		s.mu.Unlock()
		metrics.RecordStart(metrics.ResultConflict)
		s.logger.Warn("Start rejected, stream already running")
		return nil, NewStreamError(ErrCodeConflict, MsgAlreadyRunning, nil)
	}
	sess := &session{id: uuid.NewString(), exited: make(chan struct{})}
	s.session = sess
	t := s.applyLocked(sess.id, Starting())
	s.mu.Unlock()
	s.report(t)

	logger := s.logger.With("session", sess.id)

	cfg, err := source.Load(ctx)
	if err != nil {
		logger.Error("Failed to read launch config", "error", err)
		msg := fmt.Sprintf("Failed to read config: %v", err)
		metrics.RecordStart(metrics.ResultConfigError)
		return nil, s.abortStart(sess, ConfigFailed(msg), NewStreamError(ErrCodeConfigError, msg, err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Launch config incomplete", "error", err)
		metrics.RecordStart(metrics.ResultConfigError)
		return nil, s.abortStart(sess, ConfigFailed(MsgMissingConfig), NewStreamError(ErrCodeConfigError, MsgMissingConfig, err))
	}

	argv := EncoderArgs(s.opts.Binary, *s.opts.Profile, cfg)
	logger.Info("Starting encoder",
		"source", cfg.SourceURL,
		"destination", cfg.DestinationURLPrefix,
		"stream_key", config.MaskSecret(cfg.StreamKey))
	logger.Debug("Encoder command", "command", ffmpeg.CommandString(maskArgs(argv, cfg.StreamKey)))

	handle, err := s.opts.Spawner.Spawn(sess.id, argv, Hooks{
		OnLine: func(source, line string) { s.handleLine(sess, source, line) },
		OnExit: func(code int) { s.handleExit(sess, code) },
	})
	if err != nil {
		logger.Error("Failed to spawn encoder", "error", err)
		metrics.RecordStart(metrics.ResultSpawnError)
		msg := fmt.Sprintf("Failed to start FFmpeg: %v", err)
		return nil, s.abortStart(sess, SpawnFailed(err), NewStreamError(ErrCodeSpawnError, msg, err))
	}

	s.mu.Lock()
	closed := s.closed
	escalate := false
	var signalErr error
	switch {
	case s.session != sess:
		// Exited before we got here; handleExit already reported it.
		t = nil
	case closed:
		// Shutdown began while spawning; it is waiting for this session to exit.
		sess.handle = handle
		sess.startedAt = time.Now()
		sess.stopRequested = true
		signalErr = handle.Interrupt()
		t = s.applyLocked(sess.id, StopRequested())
		if escalate = s.opts.StopGracePeriod > 0; escalate {
			s.wg.Add(1)
		}
	default:
		sess.handle = handle
		sess.startedAt = time.Now()
		t = s.applyLocked(sess.id, Spawned())
	}
	s.mu.Unlock()
	s.report(t)

	if closed {
		if signalErr != nil {
			logger.Warn("Failed to interrupt encoder", "error", signalErr)
		}
		if escalate {
			go s.escalate(sess, s.opts.StopGracePeriod)
		}
		metrics.RecordStart(metrics.ResultConflict)
		logger.Warn("Encoder spawned during shutdown, interrupted", "pid", handle.Pid())
		return nil, NewStreamError(ErrCodeConflict, MsgShuttingDown, nil)
	}

	metrics.RecordStart(metrics.ResultOK)
	logger.Info("Encoder spawned", "pid", handle.Pid())
	return &Result{Status: StateStarting, Message: MsgAttempting}, nil
}

// abortStart releases the reserved session and applies the failure event.
func (s *Supervisor) abortStart(sess *session, ev Event, err *StreamError) error {
	s.mu.Lock()
	var t *transition
	if s.session == sess {
		s.session = nil
		t = s.applyLocked(sess.id, ev)
	}
	s.mu.Unlock()
	close(sess.exited)
	s.report(t)
	return err
}

// Stop interrupts the running encoder and reports stopped immediately.
// If the encoder is still alive after the grace period it is killed.
func (s *Supervisor) Stop() (*Result, error) {
	s.mu.Lock()
	sess := s.session
	if sess == nil || sess.handle == nil {
		s.mu.Unlock()
		metrics.RecordStop(metrics.ResultConflict)
		return nil, NewStreamError(ErrCodeConflict, MsgNotRunning, nil)
	}

	escalate := !sess.stopRequested && s.opts.StopGracePeriod > 0
	if escalate {
		// Added under mu so Shutdown, which sets closed under mu, never
		// waits on wg while an escalation is still being registered.
		s.wg.Add(1)
	}
	sess.stopRequested = true
	// Signal under the lock so the handle cannot be reused concurrently.
	signalErr := sess.handle.Interrupt()
	t := s.applyLocked(sess.id, StopRequested())
	s.mu.Unlock()
	s.report(t)

	logger := s.logger.With("session", sess.id)
	if signalErr != nil {
		logger.Warn("Failed to interrupt encoder", "error", signalErr)
	}
	logger.Info("Stop requested")
	metrics.RecordStop(metrics.ResultOK)

	if escalate {
		go s.escalate(sess, s.opts.StopGracePeriod)
	}
	return &Result{Status: StateStopped, Message: MsgStoppedByUser}, nil
}

// escalate kills the encoder if it outlives the grace period.
func (s *Supervisor) escalate(sess *session, grace time.Duration) {
	defer s.wg.Done()

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-sess.exited:
		return
	case <-timer.C:
	}

	s.mu.Lock()
	handle := sess.handle
	live := s.session == sess
	s.mu.Unlock()
	if !live || handle == nil {
		return
	}

	s.logger.Warn("Encoder ignored interrupt, killing", "session", sess.id, "grace_period", grace)
	metrics.RecordKill()
	if err := handle.Kill(); err != nil {
		s.logger.Error("Failed to kill encoder", "session", sess.id, "error", err)
	}
}

// Shutdown stops the running encoder, if any, and waits for it to exit or
// for ctx to end.
// No start is accepted once Shutdown has been called.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	sess := s.session
	s.mu.Unlock()

	if sess != nil {
		// Rejected while the spawn is in flight; Start interrupts the
		// encoder itself once it sees closed.
		if _, err := s.Stop(); err != nil && ErrorCode(err) != ErrCodeConflict {
			return err
		}
		select {
		case <-sess.exited:
		case <-ctx.Done():
			s.mu.Lock()
			handle := sess.handle
			s.mu.Unlock()
			if handle != nil {
				_ = handle.Kill()
			}
			return ctx.Err()
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// handleLine classifies one line of encoder output.
func (s *Supervisor) handleLine(sess *session, source, line string) {
	if p, ok := ffmpeg.ParseProgress(line); ok {
		metrics.SetProgress(metrics.Progress{
			Frame:       p.Frame,
			FPS:         p.FPS,
			BitrateKbps: p.BitrateKbps,
			Speed:       p.Speed,
			Time:        p.Time,
		})
		if s.opts.OnProgress != nil {
			s.opts.OnProgress(sess.id, p)
		}
		return
	}

	if source != SourceStderr || !ffmpeg.IsErrorLine(line, s.opts.ErrorMarker) {
		return
	}
	metrics.RecordErrorLine()

	s.mu.Lock()
	var t *transition
	// Lines from a replaced session or after a user stop do not touch the status.
	if s.session == sess && !sess.stopRequested {
		t = s.applyLocked(sess.id, ErrorLine(line))
	}
	s.mu.Unlock()
	s.report(t)
}

// handleExit releases the handle and applies the exit unless a stop was requested.
func (s *Supervisor) handleExit(sess *session, code int) {
	s.mu.Lock()
	var t *transition
	requested := sess.stopRequested
	if s.session == sess {
		s.session = nil
		exitCode := code
		s.lastExitCode = &exitCode
		s.lastExitAt = time.Now()
		if !requested {
			t = s.applyLocked(sess.id, Exited(code))
		}
	}
	s.mu.Unlock()
	close(sess.exited)
	s.report(t)

	switch {
	case requested:
		metrics.RecordExit(metrics.ExitRequested)
	case code == 0:
		metrics.RecordExit(metrics.ExitNormal)
	default:
		metrics.RecordExit(metrics.ExitFailure)
	}
	metrics.ResetProgress()
	s.logger.Info("Encoder exited", "session", sess.id, "exit_code", code, "stop_requested", requested)
}

// applyLocked runs the transition function. Caller holds mu.
func (s *Supervisor) applyLocked(sessionID string, ev Event) *transition {
	old := s.status
	s.status = Apply(old, ev)
	if s.status == old {
		return nil
	}
	s.seq++
	return &transition{seq: s.seq, sessionID: sessionID, old: old, new: s.status}
}

// report publishes a transition. Must be called without mu held.
// Transitions are published in the order they were applied; one that lost
// the race to a newer transition is dropped so the last published status is
// always the current one.
func (s *Supervisor) report(t *transition) {
	if t == nil {
		return
	}
	s.reportMu.Lock()
	defer s.reportMu.Unlock()
	if t.seq <= s.reported {
		s.logger.Debug("Dropping superseded status change",
			"session", t.sessionID, "to", string(t.new.State))
		return
	}
	s.reported = t.seq

	metrics.SetStreamState(string(t.new.State))
	s.logger.Debug("Stream status changed",
		"session", t.sessionID,
		"from", string(t.old.State),
		"to", string(t.new.State),
		"message", t.new.Message)
	if s.opts.OnStateChange != nil {
		s.opts.OnStateChange(t.sessionID, t.old, t.new)
	}
}

// maskArgs hides the stream key inside argv for logging.
func maskArgs(argv []string, streamKey string) []string {
	if streamKey == "" {
		return argv
	}
	masked := make([]string, len(argv))
	for i, arg := range argv {
		masked[i] = strings.ReplaceAll(arg, streamKey, config.MaskSecret(streamKey))
	}
	return masked
}
