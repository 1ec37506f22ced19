package events

import (
	"time"

	"github.com/smazurov/restreamer/internal/logging"
)

// ForwardLogs publishes every buffered log entry on the bus as a LogEntryEvent.
// Returns a function that detaches the forwarder.
func ForwardLogs(bus *Bus) func() {
	logging.SetLogCallback(func(entry logging.LogEntry) {
		bus.Publish(NewLogEntryEvent(entry))
	})
	return func() { logging.SetLogCallback(nil) }
}

// NewLogEntryEvent converts a buffered log entry. Seq is carried over so
// replayed and live entries share one numbering.
func NewLogEntryEvent(entry logging.LogEntry) LogEntryEvent {
	return LogEntryEvent{
		Seq:        entry.Seq,
		Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
		Level:      entry.Level,
		Module:     entry.Module,
		Message:    entry.Message,
		Attributes: entry.Attributes,
	}
}
