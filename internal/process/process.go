package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/restreamer/internal/logging"
)

// OutputHandler receives output lines from the subprocess.
type OutputHandler interface {
	HandleLine(source, line string)
}

// OutputHandlerFunc adapts a function to OutputHandler.
type OutputHandlerFunc func(source, line string)

// HandleLine calls f.
func (f OutputHandlerFunc) HandleLine(source, line string) { f(source, line) }

// LogParser parses a log line and returns the log level and message.
type LogParser func(line string) (level, msg string)

// ExitHandler is called once after the subprocess exits and its output is drained.
type ExitHandler func(exitCode int, err error)

// Output sources passed to OutputHandler.
const (
	SourceStdout = "stdout"
	SourceStderr = "stderr"
)

const maxLineLength = 1 << 20

// Process manages the lifecycle of one subprocess.
type Process struct {
	id              string
	argv            []string
	cmd             *exec.Cmd
	logger          logging.Logger
	processLogger   logging.Logger // logger for process output (nil = use logger)
	logParser       LogParser      // parses process output for log level (nil = no parsing)
	outputHandler   OutputHandler
	exitHandler     ExitHandler
	ctx             context.Context
	cancel          context.CancelFunc
	gracefulTimeout time.Duration // timeout for graceful shutdown before force kill
	killTimeout     time.Duration // timeout after Kill() before giving up

	mu        sync.Mutex
	started   bool
	startedAt time.Time
	exitCode  int
	done      chan struct{}
}

// NewProcess creates a process for argv. argv[0] is the binary.
func NewProcess(id string, argv []string, logger logging.Logger) *Process {
	ctx, cancel := context.WithCancel(context.Background())
	return &Process{
		id:              id,
		argv:            append([]string(nil), argv...),
		logger:          logger,
		ctx:             ctx,
		cancel:          cancel,
		gracefulTimeout: 5 * time.Second,
		killTimeout:     5 * time.Second,
		done:            make(chan struct{}),
	}
}

// ID returns the process identifier.
func (p *Process) ID() string {
	return p.id
}

// Args returns a copy of the argument vector.
func (p *Process) Args() []string {
	return append([]string(nil), p.argv...)
}

// SetLogParser sets a custom logger and log parser for process output.
// The logger is used for process output (e.g., module="ffmpeg").
func (p *Process) SetLogParser(logger logging.Logger, parser LogParser) {
	p.processLogger = logger
	p.logParser = parser
}

// SetOutputHandler sets the receiver for every output line.
func (p *Process) SetOutputHandler(handler OutputHandler) {
	p.outputHandler = handler
}

// SetExitHandler sets the callback invoked after exit.
func (p *Process) SetExitHandler(handler ExitHandler) {
	p.exitHandler = handler
}

// SetGracefulTimeout sets how long Run waits after SIGINT before killing.
func (p *Process) SetGracefulTimeout(d time.Duration) {
	if d > 0 {
		p.gracefulTimeout = d
	}
}

// Start launches the subprocess without waiting for it. stdin is /dev/null.
// The exit handler runs on a background goroutine once the process is gone.
func (p *Process) Start() error {
	if len(p.argv) == 0 {
		return errors.New("empty command")
	}

	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return errors.New("process already started")
	}
	p.started = true
	p.mu.Unlock()

	p.cmd = exec.Command(p.argv[0], p.argv[1:]...)
	// Own process group: terminal signals aimed at the server do not reach
	// the encoder, and Kill can take down the whole group.
	p.cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := p.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := p.cmd.Start(); err != nil {
		p.logger.Error("Failed to start process", "id", p.id, "binary", p.argv[0], "error", err)
		return err
	}

	p.mu.Lock()
	p.startedAt = time.Now()
	p.mu.Unlock()

	p.logger.Info("Process started", "id", p.id, "pid", p.cmd.Process.Pid)

	var outputs sync.WaitGroup
	outputs.Add(2)
	go func() {
		defer outputs.Done()
		p.streamOutput(stdout, SourceStdout)
	}()
	go func() {
		defer outputs.Done()
		p.streamOutput(stderr, SourceStderr)
	}()

	go func() {
		// Wait closes the pipes, so drain them first.
		outputs.Wait()
		waitErr := p.cmd.Wait()
		code := exitCodeFromError(waitErr)
		if waitErr != nil && !isExitError(waitErr) {
			p.logger.Error("Process exited with error", "id", p.id, "error", waitErr)
		}
		p.logger.Info("Process exited", "id", p.id, "exit_code", code)

		p.mu.Lock()
		p.exitCode = code
		p.mu.Unlock()

		if p.exitHandler != nil {
			p.exitHandler(code, waitErr)
		}
		close(p.done)
	}()

	return nil
}

// Pid returns the OS process id, or 0 before Start.
func (p *Process) Pid() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// StartedAt returns when the process was launched.
func (p *Process) StartedAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.startedAt
}

// Done is closed after the process exits and the exit handler has returned.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// ExitCode returns the exit code. Valid only after Done is closed.
func (p *Process) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

// Interrupt sends SIGINT to the subprocess without waiting.
func (p *Process) Interrupt() error {
	if p.cmd == nil || p.cmd.Process == nil {
		return errors.New("process not started")
	}
	p.logger.Info("Sending SIGINT to process", "id", p.id, "pid", p.cmd.Process.Pid)
	if err := p.cmd.Process.Signal(syscall.SIGINT); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// Kill sends SIGKILL to the subprocess's process group.
func (p *Process) Kill() error {
	if p.cmd == nil || p.cmd.Process == nil {
		return errors.New("process not started")
	}
	pid := p.cmd.Process.Pid
	p.logger.Warn("Killing process group", "id", p.id, "pid", pid)
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		// Fall back to the leader alone.
		if killErr := p.cmd.Process.Kill(); killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
			return killErr
		}
	}
	return nil
}

// Shutdown makes a blocking Run stop the subprocess and return.
func (p *Process) Shutdown() {
	p.cancel()
}

// Run starts the subprocess and blocks until it exits, Shutdown is called, or
// SIGINT/SIGTERM arrives. On shutdown the subprocess gets SIGINT, then SIGKILL
// after the graceful timeout. Returns the exit code.
func (p *Process) Run() int {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := p.Start(); err != nil {
		return 1
	}

	select {
	case <-p.ctx.Done():
		p.logger.Info("Context cancelled, shutting down process")
	case sig := <-sigChan:
		p.logger.Info("Received shutdown signal", "signal", sig.String())
	case <-p.done:
		return p.ExitCode()
	}

	if err := p.Interrupt(); err != nil {
		p.logger.Warn("Failed to send SIGINT", "error", err)
	}
	return p.waitForExit(p.gracefulTimeout)
}

// waitForExit waits for the process to exit with a timeout, force-killing if needed.
func (p *Process) waitForExit(timeout time.Duration) int {
	select {
	case <-p.done:
		return p.ExitCode()
	case <-time.After(timeout):
		p.logger.Warn("Graceful shutdown timeout, forcing kill", "timeout", timeout)
		if err := p.Kill(); err != nil {
			p.logger.Error("Failed to kill process", "error", err)
		}
		select {
		case <-p.done:
			return p.ExitCode()
		case <-time.After(p.killTimeout):
			p.logger.Error("Process did not exit after kill signal")
			return 128 + int(syscall.SIGKILL)
		}
	}
}

// streamOutput forwards each line to the output handler and logs it at the
// level chosen by the log parser.
func (p *Process) streamOutput(reader io.Reader, source string) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	scanner.Split(scanLinesOrCR)

	logger := p.processLogger
	if logger == nil {
		logger = p.logger
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		if p.outputHandler != nil {
			p.outputHandler.HandleLine(source, line)
		}

		level, msg := "info", line
		if p.logParser != nil {
			level, msg = p.logParser(line)
		}

		switch level {
		case "fatal", "error":
			logger.Error(msg, "source", source)
		case "warning":
			logger.Warn(msg, "source", source)
		case "debug", "trace":
			logger.Debug(msg, "source", source)
		default:
			logger.Info(msg, "source", source)
		}
	}

	if err := scanner.Err(); err != nil {
		p.logger.Warn("Error reading output", "source", source, "error", err)
		// Keep draining so the child never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, reader)
	}
}

// scanLinesOrCR splits on '\n' or '\r'. ffmpeg rewrites its progress line
// with bare carriage returns.
func scanLinesOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// exitCodeFromError maps a Wait error to a shell-style exit code:
// 0 for nil, the exit status, 128+signal for signalled processes, 1 otherwise.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return exitErr.ExitCode()
	}
	return 1
}

func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}
