package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetStreamStateIsOneHot(t *testing.T) {
	SetStreamState("running")
	t.Cleanup(func() { SetStreamState("idle") })

	for _, s := range States {
		want := 0.0
		if s == "running" {
			want = 1
		}
		if got := testutil.ToFloat64(streamState.WithLabelValues(s)); got != want {
			t.Errorf("state %q gauge = %v, want %v", s, got, want)
		}
	}
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(streamStartsTotal.WithLabelValues(ResultConflict))
	RecordStart(ResultConflict)
	if got := testutil.ToFloat64(streamStartsTotal.WithLabelValues(ResultConflict)); got != before+1 {
		t.Errorf("starts_total{conflict} = %v, want %v", got, before+1)
	}

	beforeExit := testutil.ToFloat64(encoderExitsTotal.WithLabelValues(ExitFailure))
	RecordExit(ExitFailure)
	if got := testutil.ToFloat64(encoderExitsTotal.WithLabelValues(ExitFailure)); got != beforeExit+1 {
		t.Errorf("exits_total{failure} = %v, want %v", got, beforeExit+1)
	}

	beforeLines := testutil.ToFloat64(encoderErrorLinesTotal)
	RecordErrorLine()
	if got := testutil.ToFloat64(encoderErrorLinesTotal); got != beforeLines+1 {
		t.Errorf("error_lines_total = %v, want %v", got, beforeLines+1)
	}
}

func TestProgressCache(t *testing.T) {
	ResetProgress()
	if p := GetProgress(); p != nil {
		t.Fatalf("GetProgress() = %+v, want nil", p)
	}

	SetProgress(Progress{Frame: 120, FPS: 25, BitrateKbps: 2500.5, Speed: 1.01, Time: "00:00:04.80"})

	p := GetProgress()
	if p == nil {
		t.Fatal("expected progress after SetProgress")
	}
	if p.Frame != 120 || p.FPS != 25 || p.Speed != 1.01 {
		t.Errorf("GetProgress() = %+v", p)
	}
	if p.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be filled in")
	}
	if got := testutil.ToFloat64(ffmpegFPS); got != 25 {
		t.Errorf("fps gauge = %v, want 25", got)
	}

	// Returned value is a copy.
	p.FPS = 999
	if GetProgress().FPS != 25 {
		t.Error("cache was modified through returned pointer")
	}

	ResetProgress()
	if GetProgress() != nil {
		t.Error("expected nil after ResetProgress")
	}
	if got := testutil.ToFloat64(ffmpegFPS); got != 0 {
		t.Errorf("fps gauge after reset = %v, want 0", got)
	}
}

func TestHTTPHandlerExposesMetrics(t *testing.T) {
	RecordStart(ResultOK)

	rec := httptest.NewRecorder()
	HTTPHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, name := range []string{"restreamer_stream_state", "restreamer_stream_starts_total", "restreamer_ffmpeg_fps"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
