package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/restreamer/internal/api/models"
	"github.com/smazurov/restreamer/internal/metrics"
	"github.com/smazurov/restreamer/internal/process"
)

// registerStreamRoutes registers the stream control endpoints. They always
// answer 200 with a {status, message} body, failures included.
func (s *Server) registerStreamRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "stream-status",
		Method:      http.MethodGet,
		Path:        "/stream_status",
		Summary:     "Stream Status",
		Description: "Get the current stream status",
		Tags:        []string{"stream"},
	}, func(_ context.Context, _ *struct{}) (*models.StreamStatusResponse, error) {
		st := s.controller.Status()
		return streamStatusResponse(string(st.State), st.Message), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "start-stream",
		Method:      http.MethodPost,
		Path:        "/start_stream",
		Summary:     "Start Stream",
		Description: "Read the launch config and start the encoder. Returns once the process is spawned; poll /stream_status for the outcome.",
		Tags:        []string{"stream"},
	}, func(ctx context.Context, _ *struct{}) (*models.StreamStatusResponse, error) {
		res, err := s.controller.Start(ctx, s.launch)
		if err != nil {
			s.logger.Warn("Start stream failed", "code", process.ErrorCode(err), "error", err)
			return errorResponse(err), nil
		}
		return streamStatusResponse(string(res.Status), res.Message), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-stream",
		Method:      http.MethodPost,
		Path:        "/stop_stream",
		Summary:     "Stop Stream",
		Description: "Interrupt the running encoder. Reports stopped immediately.",
		Tags:        []string{"stream"},
	}, func(_ context.Context, _ *struct{}) (*models.StreamStatusResponse, error) {
		res, err := s.controller.Stop()
		if err != nil {
			s.logger.Info("Stop stream rejected", "code", process.ErrorCode(err), "error", err)
			return errorResponse(err), nil
		}
		return streamStatusResponse(string(res.Status), res.Message), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-stream",
		Method:      http.MethodGet,
		Path:        "/api/stream",
		Summary:     "Stream Details",
		Description: "Get the status, encoder session and latest progress of the stream",
		Tags:        []string{"stream"},
	}, func(_ context.Context, _ *struct{}) (*models.StreamInfoResponse, error) {
		return &models.StreamInfoResponse{Body: streamInfo(s.controller.Info(), metrics.GetProgress())}, nil
	})
}

func streamStatusResponse(status, message string) *models.StreamStatusResponse {
	return &models.StreamStatusResponse{
		Body: models.StreamStatusData{Status: status, Message: message},
	}
}

func errorResponse(err error) *models.StreamStatusResponse {
	return streamStatusResponse(string(process.StateError), process.UserMessage(err))
}

func streamInfo(info process.Info, progress *metrics.Progress) models.StreamInfoData {
	data := models.StreamInfoData{
		Status:       string(info.Status.State),
		Message:      info.Status.Message,
		SessionID:    info.SessionID,
		PID:          info.PID,
		Running:      info.Running,
		Stopping:     info.Stopping,
		LastExitCode: info.LastExitCode,
	}
	if !info.StartedAt.IsZero() {
		startedAt := info.StartedAt
		data.StartedAt = &startedAt
	}
	if !info.LastExitAt.IsZero() {
		exitAt := info.LastExitAt
		data.LastExitAt = &exitAt
	}
	// Progress only describes a held encoder.
	if progress != nil && info.Running {
		data.Progress = &models.StreamProgress{
			Frame:       progress.Frame,
			FPS:         progress.FPS,
			BitrateKbps: progress.BitrateKbps,
			Speed:       progress.Speed,
			Time:        progress.Time,
			UpdatedAt:   progress.UpdatedAt,
		}
	}
	return data
}
