package events

// Event type constants for kelindar/event.
const (
	TypeStreamStatusChanged uint32 = iota + 1
	TypeLaunchConfigChanged
	TypeLogEntry
	TypeStreamProgress
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// StreamStatusChangedEvent is published after every stream status transition.
type StreamStatusChangedEvent struct {
	SessionID       string `json:"session_id,omitempty" example:"7f9c2ba4-e88f-4d2b-9f0a-2b2a4c1d3e5f" doc:"Encoder session the change belongs to"`
	Status          string `json:"status" example:"running" doc:"New status" enum:"idle,starting,running,stopped,error"`
	Message         string `json:"message" example:"Stream started successfully." doc:"Human readable status message"`
	PreviousStatus  string `json:"previous_status" example:"starting" doc:"Status before the change"`
	PreviousMessage string `json:"previous_message,omitempty" doc:"Message before the change"`
	Timestamp       string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamStatusChangedEvent.
func (e StreamStatusChangedEvent) Type() uint32 { return TypeStreamStatusChanged }

// LaunchConfigChangedEvent is published when the launch config file changes on
// disk or is replaced through the API. The new values apply on the next start.
type LaunchConfigChangedEvent struct {
	Path      string `json:"path" example:"stream.toml" doc:"Launch config file"`
	Valid     bool   `json:"valid" example:"true" doc:"Whether the new file holds a complete configuration"`
	Error     string `json:"error,omitempty" doc:"Load or validation error"`
	Source    string `json:"source" example:"file" doc:"What changed the file: file or api" enum:"file,api"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for LaunchConfigChangedEvent.
func (e LaunchConfigChangedEvent) Type() uint32 { return TypeLaunchConfigChanged }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"ffmpeg" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }

// StreamProgressEvent carries one parsed encoder status line.
type StreamProgressEvent struct {
	SessionID   string  `json:"session_id" example:"7f9c2ba4-e88f-4d2b-9f0a-2b2a4c1d3e5f" doc:"Encoder session"`
	Frame       int64   `json:"frame" example:"250" doc:"Frames encoded so far"`
	FPS         float64 `json:"fps" example:"25" doc:"Current encoding rate"`
	BitrateKbps float64 `json:"bitrate_kbps" example:"838.9" doc:"Output bitrate in kbit/s"`
	Speed       float64 `json:"speed" example:"1" doc:"Encoding speed relative to realtime"`
	Time        string  `json:"time" example:"00:00:10.00" doc:"Output position"`
	Timestamp   string  `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamProgressEvent.
func (e StreamProgressEvent) Type() uint32 { return TypeStreamProgress }
