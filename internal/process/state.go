package process

import (
	"fmt"
	"time"
)

// State is the externally visible state of the stream.
type State string

// Stream states. Stopped and error are not terminal; a new start leaves them.
const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopped  State = "stopped"
	StateError    State = "error"
)

// Status messages.
const (
	MsgIdle            = "No stream running."
	MsgStarting        = "Starting stream..."
	MsgStarted         = "Stream started successfully."
	MsgAttempting      = "Attempting to start stream..."
	MsgStoppedByUser   = "Stream stopped by user."
	MsgStoppedNormally = "Stream stopped normally."
	MsgAlreadyRunning  = "Stream already running."
	MsgNotRunning      = "No stream is running."
	MsgMissingConfig   = "Missing stream configuration in config."
	MsgShuttingDown    = "Server is shutting down."
)

// Status is the process-wide stream status record.
type Status struct {
	State   State  `json:"status"`
	Message string `json:"message"`
}

// InitialStatus is the status before any start attempt.
func InitialStatus() Status {
	return Status{State: StateIdle, Message: MsgIdle}
}

// Result is the immediate outcome of a start or stop request.
type Result struct {
	Status  State  `json:"status"`
	Message string `json:"message"`
}

// Info describes the current or most recent encoder session.
type Info struct {
	Status       Status
	SessionID    string
	PID          int
	StartedAt    time.Time
	Running      bool
	Stopping     bool
	LastExitCode *int
	LastExitAt   time.Time
}

// EventKind identifies an input to the status transition function.
type EventKind int

// Transition inputs.
const (
	EventStarting EventKind = iota
	EventSpawned
	EventSpawnFailed
	EventConfigFailed
	EventErrorLine
	EventExited
	EventStopRequested
)

func (k EventKind) String() string {
	switch k {
	case EventStarting:
		return "starting"
	case EventSpawned:
		return "spawned"
	case EventSpawnFailed:
		return "spawn_failed"
	case EventConfigFailed:
		return "config_failed"
	case EventErrorLine:
		return "error_line"
	case EventExited:
		return "exited"
	case EventStopRequested:
		return "stop_requested"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is a discrete input to Apply.
type Event struct {
	Kind    EventKind
	Line    string // EventErrorLine
	Code    int    // EventExited
	Err     error  // EventSpawnFailed
	Message string // EventConfigFailed
}

// Starting is applied when a start request reserves the encoder slot.
func Starting() Event { return Event{Kind: EventStarting} }

// Spawned is applied once the encoder process exists.
func Spawned() Event { return Event{Kind: EventSpawned} }

// SpawnFailed is applied when the encoder could not be launched.
func SpawnFailed(err error) Event { return Event{Kind: EventSpawnFailed, Err: err} }

// ConfigFailed is applied when the launch config is unreadable or incomplete.
func ConfigFailed(msg string) Event { return Event{Kind: EventConfigFailed, Message: msg} }

// ErrorLine is applied for a stderr line containing the error marker.
func ErrorLine(line string) Event { return Event{Kind: EventErrorLine, Line: line} }

// Exited is applied when the encoder exits on its own.
func Exited(code int) Event { return Event{Kind: EventExited, Code: code} }

// StopRequested is applied when a user stop is accepted.
func StopRequested() Event { return Event{Kind: EventStopRequested} }

// Apply returns the status that follows cur after ev. It has no side effects.
func Apply(cur Status, ev Event) Status {
	switch ev.Kind {
	case EventStarting:
		return Status{State: StateStarting, Message: MsgStarting}

	case EventSpawned:
		// An early error line or exit already moved the status on.
		if cur.State != StateStarting {
			return cur
		}
		return Status{State: StateRunning, Message: MsgStarted}

	case EventSpawnFailed:
		return Status{State: StateError, Message: fmt.Sprintf("Failed to start FFmpeg: %v", ev.Err)}

	case EventConfigFailed:
		return Status{State: StateError, Message: ev.Message}

	case EventErrorLine:
		if cur.State == StateError {
			return cur
		}
		return Status{State: StateError, Message: "FFmpeg error: " + ev.Line}

	case EventExited:
		if cur.State == StateError {
			return cur
		}
		if ev.Code != 0 {
			return Status{State: StateError, Message: fmt.Sprintf("FFmpeg exited with code %d", ev.Code)}
		}
		return Status{State: StateStopped, Message: MsgStoppedNormally}

	case EventStopRequested:
		return Status{State: StateStopped, Message: MsgStoppedByUser}
	}
	return cur
}
