package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/restreamer/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream status changes, encoder progress and launch config change notices. The current status is sent on connect.",
		Tags:        []string{"events"},
	}, map[string]any{
		"stream-status-changed": events.StreamStatusChangedEvent{},
		"launch-config-changed": events.LaunchConfigChangedEvent{},
		"stream-progress":       events.StreamProgressEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.StreamStatusChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.LaunchConfigChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.StreamProgressEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		info := s.controller.Info()
		if err := send.Data(events.StreamStatusChangedEvent{
			SessionID:      info.SessionID,
			Status:         string(info.Status.State),
			Message:        info.Status.Message,
			PreviousStatus: string(info.Status.State),
			Timestamp:      time.Now().Format(time.RFC3339),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
