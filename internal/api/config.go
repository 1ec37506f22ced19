package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/restreamer/internal/api/models"
	"github.com/smazurov/restreamer/internal/config"
	"github.com/smazurov/restreamer/internal/events"
)

// registerConfigRoutes registers the launch config endpoints.
func (s *Server) registerConfigRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-launch-config",
		Method:      http.MethodGet,
		Path:        "/api/config",
		Summary:     "Get Launch Config",
		Description: "Read the launch config file as the next start would. The stream key is masked.",
		Tags:        []string{"config"},
	}, func(ctx context.Context, _ *struct{}) (*models.LaunchConfigResponse, error) {
		data := models.LaunchConfigFileData{Path: s.launch.Path()}

		cfg, err := s.launch.Load(ctx)
		if err == nil {
			err = cfg.Validate()
		}
		if err != nil {
			data.Error = err.Error()
		} else {
			data.Valid = true
		}
		data.Config = launchConfigData(cfg.Masked())

		return &models.LaunchConfigResponse{Body: data}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "update-launch-config",
		Method:      http.MethodPut,
		Path:        "/api/config",
		Summary:     "Update Launch Config",
		Description: "Atomically replace the launch config file. Takes effect on the next start.",
		Tags:        []string{"config"},
		Errors:      []int{422, 500},
	}, func(_ context.Context, input *models.LaunchConfigUpdateRequest) (*models.LaunchConfigResponse, error) {
		cfg := config.LaunchConfig{
			SourceURL:            input.Body.SourceURL,
			DestinationURLPrefix: input.Body.DestinationURLPrefix,
			StreamKey:            input.Body.StreamKey,
		}

		if err := s.launch.Save(cfg); err != nil {
			if errors.Is(err, config.ErrIncompleteLaunchConfig) {
				return nil, huma.Error422UnprocessableEntity(err.Error())
			}
			s.logger.Error("Failed to save launch config", "path", s.launch.Path(), "error", err)
			return nil, huma.Error500InternalServerError("Failed to save launch config", err)
		}

		s.logger.Info("Launch config updated",
			"path", s.launch.Path(),
			"source_url", cfg.SourceURL,
			"stream_key", config.MaskSecret(cfg.StreamKey))

		if s.eventBus != nil {
			s.eventBus.Publish(events.LaunchConfigChangedEvent{
				Path:      s.launch.Path(),
				Valid:     true,
				Source:    "api",
				Timestamp: time.Now().Format(time.RFC3339),
			})
		}

		return &models.LaunchConfigResponse{
			Body: models.LaunchConfigFileData{
				Path:   s.launch.Path(),
				Valid:  true,
				Config: launchConfigData(cfg.Masked()),
			},
		}, nil
	})
}

func launchConfigData(cfg config.LaunchConfig) models.LaunchConfigData {
	return models.LaunchConfigData{
		SourceURL:            cfg.SourceURL,
		DestinationURLPrefix: cfg.DestinationURLPrefix,
		StreamKey:            cfg.StreamKey,
	}
}
