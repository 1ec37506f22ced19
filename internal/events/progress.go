package events

import (
	"time"

	"github.com/smazurov/restreamer/internal/ffmpeg"
)

// NewStreamProgressEvent converts a parsed status line of session sessionID.
func NewStreamProgressEvent(sessionID string, p ffmpeg.Progress) StreamProgressEvent {
	return StreamProgressEvent{
		SessionID:   sessionID,
		Frame:       p.Frame,
		FPS:         p.FPS,
		BitrateKbps: p.BitrateKbps,
		Speed:       p.Speed,
		Time:        p.Time,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}
