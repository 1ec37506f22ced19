package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/restreamer/internal/api/models"
	"github.com/smazurov/restreamer/internal/events"
	"github.com/smazurov/restreamer/internal/logging"
)

// registerLogRoutes registers the in-memory log endpoint.
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent Logs",
		Description: "Recent log entries kept in memory, encoder output included. Nothing is persisted.",
		Tags:        []string{"logs"},
	}, func(_ context.Context, input *models.LogsRequest) (*models.LogsResponse, error) {
		entries := recentLogs(logging.GetBuffer(), input.Module, input.Limit)
		return &models.LogsResponse{
			Body: models.LogsData{Entries: entries, Count: len(entries)},
		}, nil
	})
}

// registerLogStreamRoutes registers the log streaming SSE endpoint.
func (s *Server) registerLogStreamRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Real-time log streaming via Server-Sent Events. Sends buffered logs first, then streams new logs.",
		Tags:        []string{"logs"},
	}, map[string]any{
		"message": events.LogEntryEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		// Subscribe before replaying so nothing logged in between is lost.
		eventCh := make(chan any, 100)
		unsubscribe := events.SubscribeToChannel[events.LogEntryEvent](s.eventBus, eventCh)
		defer unsubscribe()

		var tail logTail
		for _, event := range tail.replay(logging.GetBuffer()) {
			if err := send.Data(event); err != nil {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if e, ok := event.(events.LogEntryEvent); ok && !tail.fresh(e) {
					continue
				}
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}

// logTail remembers the last replayed entry so live entries that were also
// in the replay are sent once.
type logTail struct {
	lastSeq uint64
}

// replay returns the buffered entries as events, oldest first.
func (t *logTail) replay(buffer *logging.RingBuffer) []events.LogEntryEvent {
	if buffer == nil {
		return nil
	}
	entries := buffer.ReadAll()
	out := make([]events.LogEntryEvent, 0, len(entries))
	for _, entry := range entries {
		out = append(out, events.NewLogEntryEvent(entry))
		if entry.Seq > t.lastSeq {
			t.lastSeq = entry.Seq
		}
	}
	return out
}

// fresh reports whether e was not part of the replay.
func (t *logTail) fresh(e events.LogEntryEvent) bool {
	return e.Seq > t.lastSeq
}

// recentLogs returns the newest limit entries of module, oldest first.
func recentLogs(buffer *logging.RingBuffer, module string, limit int) []models.LogEntryData {
	entries := []models.LogEntryData{}
	if buffer == nil {
		return entries
	}

	var src []logging.LogEntry
	if module == "" {
		src = buffer.ReadLast(limit)
	} else {
		for _, e := range buffer.ReadAll() {
			if e.Module == module {
				src = append(src, e)
			}
		}
		if limit > 0 && len(src) > limit {
			src = src[len(src)-limit:]
		}
	}

	for _, e := range src {
		entries = append(entries, models.LogEntryData{
			Timestamp:  e.Timestamp,
			Level:      e.Level,
			Module:     e.Module,
			Message:    e.Message,
			Attributes: e.Attributes,
		})
	}
	return entries
}
