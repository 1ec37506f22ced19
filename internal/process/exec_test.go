package process_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/restreamer/internal/process"
)

// writeFakeEncoder writes an executable shell script standing in for ffmpeg.
// It ignores its arguments.
func writeFakeEncoder(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func newExecSupervisor(t *testing.T, binary string) *process.Supervisor {
	t.Helper()
	return newSupervisor(t, &process.ExecSpawner{Logger: discardLogger(), OutputLogger: discardLogger()},
		func(o *process.Options) {
			o.Binary = binary
			o.StopGracePeriod = 2 * time.Second
		})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func TestExecSpawnerStartStop(t *testing.T) {
	bin := writeFakeEncoder(t, `trap 'echo "Exiting normally, received signal 2." >&2; exit 255' INT
echo "ffmpeg version n6.1 Copyright (c) 2000-2023" >&2
while :; do
  printf 'frame=   10 fps= 25 q=28.0 size=      10kB time=00:00:01.00 bitrate=  80.0kbits/s speed=1.00x\r' >&2
  sleep 0.1
done
`)
	s := newExecSupervisor(t, bin)

	if _, err := s.Start(t.Context(), validLaunch); err != nil {
		t.Fatalf("Start: %v", err)
	}
	wantStatus(t, s, process.StateRunning, "Stream started successfully.")
	if info := s.Info(); info.PID <= 0 {
		t.Errorf("PID = %d", info.PID)
	}

	time.Sleep(150 * time.Millisecond)
	if _, err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitFor(t, "encoder exit", func() bool { return !s.Info().Running })

	wantStatus(t, s, process.StateStopped, "Stream stopped by user.")
	if code := s.Info().LastExitCode; code == nil || *code != 255 {
		t.Errorf("LastExitCode = %v, want 255", code)
	}
}

func TestExecSpawnerErrorOutput(t *testing.T) {
	bin := writeFakeEncoder(t, `echo "Error opening input files: No such file or directory" >&2
exit 1
`)
	s := newExecSupervisor(t, bin)

	if _, err := s.Start(t.Context(), validLaunch); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "encoder exit", func() bool { return !s.Info().Running && s.Info().LastExitCode != nil })

	wantStatus(t, s, process.StateError, "FFmpeg error: Error opening input files: No such file or directory")
}

func TestExecSpawnerCleanExit(t *testing.T) {
	s := newExecSupervisor(t, writeFakeEncoder(t, "exit 0\n"))

	if _, err := s.Start(t.Context(), validLaunch); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "encoder exit", func() bool { return s.Info().LastExitCode != nil })
	wantStatus(t, s, process.StateStopped, "Stream stopped normally.")
}

func TestExecSpawnerReceivesArguments(t *testing.T) {
	out := filepath.Join(t.TempDir(), "args")
	s := newExecSupervisor(t, writeFakeEncoder(t, `printf '%s\n' "$@" > `+out+"\n"))

	if _, err := s.Start(t.Context(), validLaunch); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "encoder exit", func() bool { return s.Info().LastExitCode != nil })

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	args := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(args) != 25 || args[0] != "-i" || args[len(args)-1] != "rtmps://live.example.com:443/app/sk_live_abcdef123456" {
		t.Errorf("encoder got %d args: %q", len(args), args)
	}
}

func TestExecSpawnerMissingBinary(t *testing.T) {
	s := newExecSupervisor(t, filepath.Join(t.TempDir(), "no-such-ffmpeg"))

	_, err := s.Start(t.Context(), validLaunch)
	wantCode(t, err, process.ErrCodeSpawnError)
	if got := s.Status(); got.State != process.StateError || !strings.HasPrefix(got.Message, "Failed to start FFmpeg: ") {
		t.Errorf("Status() = %+v", got)
	}
}
