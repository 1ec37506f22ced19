// Package metrics provides Prometheus metrics for the encoder supervisor.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "restreamer"

var (
	ffmpegFPS = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ffmpeg",
		Name:      "fps",
		Help:      "Current encoding FPS reported by ffmpeg",
	})

	ffmpegSpeed = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ffmpeg",
		Name:      "processing_speed",
		Help:      "ffmpeg processing speed multiplier",
	})

	ffmpegBitrate = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ffmpeg",
		Name:      "bitrate_kbps",
		Help:      "Current output bitrate reported by ffmpeg",
	})

	ffmpegFrames = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ffmpeg",
		Name:      "frames",
		Help:      "Frames encoded by the current ffmpeg run",
	})

	// Local copy for the stream info endpoint.
	progressCache   *Progress
	progressCacheMu sync.RWMutex
)

// Progress holds the latest encoder progress values.
type Progress struct {
	Frame       int64     `json:"frame"`
	FPS         float64   `json:"fps"`
	BitrateKbps float64   `json:"bitrate_kbps"`
	Speed       float64   `json:"speed"`
	Time        string    `json:"time,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SetProgress records the latest progress line of the running encoder.
func SetProgress(p Progress) {
	ffmpegFPS.Set(p.FPS)
	ffmpegSpeed.Set(p.Speed)
	ffmpegBitrate.Set(p.BitrateKbps)
	ffmpegFrames.Set(float64(p.Frame))

	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	progressCacheMu.Lock()
	progressCache = &p
	progressCacheMu.Unlock()
}

// ResetProgress zeroes the progress gauges once the encoder is gone.
func ResetProgress() {
	ffmpegFPS.Set(0)
	ffmpegSpeed.Set(0)
	ffmpegBitrate.Set(0)
	ffmpegFrames.Set(0)

	progressCacheMu.Lock()
	progressCache = nil
	progressCacheMu.Unlock()
}

// GetProgress returns a copy of the latest progress, or nil if none.
func GetProgress() *Progress {
	progressCacheMu.RLock()
	defer progressCacheMu.RUnlock()
	if progressCache == nil {
		return nil
	}
	dup := *progressCache
	return &dup
}
