package process

import (
	"bufio"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sh(script string) []string {
	return []string{"sh", "-c", script}
}

// newTestProcess creates a Process with short timeouts for testing.
func newTestProcess(argv []string) *Process {
	p := NewProcess("test", argv, testLogger())
	p.gracefulTimeout = 100 * time.Millisecond
	p.killTimeout = 100 * time.Millisecond
	return p
}

// runAsync runs the process's Run method in a goroutine and returns exit code channel.
func runAsync(p *Process) <-chan int {
	done := make(chan int, 1)
	go func() {
		done <- p.Run()
	}()
	return done
}

// waitForExit waits for exit code with timeout, fails test on timeout.
func waitForExit(t *testing.T, done <-chan int, timeout time.Duration) int {
	t.Helper()
	select {
	case exitCode := <-done:
		return exitCode
	case <-time.After(timeout):
		t.Fatal("timeout waiting for process to exit")
		return -1
	}
}

func TestGracefulShutdown(t *testing.T) {
	p := newTestProcess(sh("trap 'exit 0' INT TERM; while :; do sleep 0.1; done"))
	p.gracefulTimeout = 500 * time.Millisecond

	done := runAsync(p)
	time.Sleep(100 * time.Millisecond)
	p.Shutdown()

	if exitCode := waitForExit(t, done, time.Second); exitCode != 0 {
		t.Errorf("expected exit code 0, got %d", exitCode)
	}
}

func TestForceKillOnTimeout(t *testing.T) {
	p := newTestProcess(sh("trap '' INT; sleep 10"))
	p.gracefulTimeout = 50 * time.Millisecond
	p.killTimeout = 500 * time.Millisecond

	done := runAsync(p)
	time.Sleep(50 * time.Millisecond)
	p.Shutdown()

	// 128 + 9 for SIGKILL
	if exitCode := waitForExit(t, done, time.Second); exitCode != 137 {
		t.Errorf("expected exit code 137, got %d", exitCode)
	}
}

func TestProcessExitCodes(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want int
	}{
		{"success", []string{"true"}, 0},
		{"exit status", sh("exit 42"), 42},
		{"killed by signal", sh("kill -TERM $$"), 143},
		{"missing binary", []string{"/nonexistent/command/that/does/not/exist"}, 1},
		{"empty argv", nil, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newTestProcess(tt.argv).Run(); got != tt.want {
				t.Errorf("Run() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStartTwice(t *testing.T) {
	p := newTestProcess([]string{"true"})
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	if err := p.Start(); err == nil {
		t.Error("second Start should fail")
	}
	<-p.Done()
}

func TestExitHandlerAfterOutput(t *testing.T) {
	var mu sync.Mutex
	var lines []string
	exited := make(chan int, 1)

	p := newTestProcess(sh("echo out1; echo err1 >&2; echo out2; exit 3"))
	p.SetOutputHandler(OutputHandlerFunc(func(source, line string) {
		mu.Lock()
		lines = append(lines, source+":"+line)
		mu.Unlock()
	}))
	p.SetExitHandler(func(code int, _ error) {
		mu.Lock()
		n := len(lines)
		mu.Unlock()
		if n != 3 {
			t.Errorf("exit handler saw %d lines, want 3", n)
		}
		exited <- code
	})

	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	if p.Pid() == 0 {
		t.Error("Pid() = 0 after Start")
	}

	select {
	case code := <-exited:
		if code != 3 {
			t.Errorf("exit code = %d, want 3", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("exit handler not called")
	}
	<-p.Done()

	mu.Lock()
	defer mu.Unlock()
	joined := strings.Join(lines, ",")
	for _, want := range []string{"stdout:out1", "stderr:err1", "stdout:out2"} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in %v", want, lines)
		}
	}
}

func TestInterruptAfterExit(t *testing.T) {
	p := newTestProcess([]string{"true"})
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	<-p.Done()

	if err := p.Interrupt(); err != nil {
		t.Errorf("Interrupt after exit = %v, want nil", err)
	}
	if err := p.Kill(); err != nil {
		t.Errorf("Kill after exit = %v, want nil", err)
	}
}

func TestInterruptBeforeStart(t *testing.T) {
	p := newTestProcess([]string{"true"})
	if err := p.Interrupt(); err == nil {
		t.Error("Interrupt before Start should fail")
	}
	p.Shutdown()
}

func TestStreamOutputLogLevels(t *testing.T) {
	var buf strings.Builder
	var mu sync.Mutex
	logger := slog.New(slog.NewTextHandler(&lockedWriter{w: &buf, mu: &mu}, &slog.HandlerOptions{Level: slog.LevelDebug}))

	p := newTestProcess(sh(`echo "[error] bad"; echo "[warning] meh"; echo "[debug] noise"; echo plain`))
	p.SetLogParser(logger, func(line string) (string, string) {
		if strings.HasPrefix(line, "[") {
			end := strings.Index(line, "]")
			return line[1:end], strings.TrimSpace(line[end+1:])
		}
		return "info", line
	})
	if code := p.Run(); code != 0 {
		t.Fatalf("Run() = %d", code)
	}

	mu.Lock()
	out := buf.String()
	mu.Unlock()
	for _, want := range []string{"level=ERROR msg=bad", "level=WARN msg=meh", "level=DEBUG msg=noise", "level=INFO msg=plain"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

type lockedWriter struct {
	w  io.Writer
	mu *sync.Mutex
}

func (l *lockedWriter) Write(b []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(b)
}

func TestScanLinesOrCR(t *testing.T) {
	input := "frame=1 time=00:00:01\rframe=2 time=00:00:02\r\nError opening output\nlast"
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Split(scanLinesOrCR)

	var got []string
	for scanner.Scan() {
		got = append(got, scanner.Text())
	}
	want := []string{"frame=1 time=00:00:01", "frame=2 time=00:00:02", "", "Error opening output", "last"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("tokens = %q, want %q", got, want)
	}
}

func TestExitCodeFromError(t *testing.T) {
	if got := exitCodeFromError(nil); got != 0 {
		t.Errorf("exitCodeFromError(nil) = %d", got)
	}
	if got := exitCodeFromError(io.EOF); got != 1 {
		t.Errorf("exitCodeFromError(EOF) = %d, want 1", got)
	}
}
