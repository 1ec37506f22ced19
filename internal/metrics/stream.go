package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// States is the full set of stream states exported by the state gauge.
var States = []string{"idle", "starting", "running", "stopped", "error"}

var (
	streamState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "state",
		Help:      "1 for the current stream state, 0 for all others",
	}, []string{"state"})

	streamStartsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "starts_total",
		Help:      "Start requests by result",
	}, []string{"result"})

	streamStopsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "stops_total",
		Help:      "Stop requests by result",
	}, []string{"result"})

	encoderExitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ffmpeg",
		Name:      "exits_total",
		Help:      "Encoder exits by reason",
	}, []string{"reason"})

	encoderErrorLinesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ffmpeg",
		Name:      "error_lines_total",
		Help:      "stderr lines containing the error marker",
	})

	encoderKillsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ffmpeg",
		Name:      "kills_total",
		Help:      "Encoders force-killed after the stop grace period",
	})
)

// Start results.
const (
	ResultOK          = "ok"
	ResultConflict    = "conflict"
	ResultConfigError = "config_error"
	ResultSpawnError  = "spawn_error"
)

// Exit reasons.
const (
	ExitNormal    = "normal"
	ExitFailure   = "failure"
	ExitRequested = "requested"
)

func init() {
	SetStreamState("idle")
}

// SetStreamState sets the gauge for state to 1 and every other state to 0.
func SetStreamState(state string) {
	for _, s := range States {
		v := 0.0
		if s == state {
			v = 1
		}
		streamState.WithLabelValues(s).Set(v)
	}
}

// RecordStart counts a start request.
func RecordStart(result string) {
	streamStartsTotal.WithLabelValues(result).Inc()
}

// RecordStop counts a stop request.
func RecordStop(result string) {
	streamStopsTotal.WithLabelValues(result).Inc()
}

// RecordExit counts an encoder exit.
func RecordExit(reason string) {
	encoderExitsTotal.WithLabelValues(reason).Inc()
}

// RecordErrorLine counts a stderr line that matched the error marker.
func RecordErrorLine() {
	encoderErrorLinesTotal.Inc()
}

// RecordKill counts a forced kill.
func RecordKill() {
	encoderKillsTotal.Inc()
}
