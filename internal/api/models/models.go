// Package models holds the request and response types of the HTTP API.
package models

import "time"

// Health models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15 14:30" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"a1b2c3d4" doc:"Unique build identifier"`
	GoVersion string `json:"go_version" example:"go1.21.0" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Compiler used"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// StreamStatusData is the body of every stream control endpoint.
type StreamStatusData struct {
	Status  string `json:"status" example:"running" doc:"Stream status" enum:"idle,starting,running,stopped,error"`
	Message string `json:"message" example:"Stream started successfully." doc:"Human readable status message"`
}

type StreamStatusResponse struct {
	Body StreamStatusData
}

// StreamProgress is the latest progress line reported by the encoder.
type StreamProgress struct {
	Frame       int64     `json:"frame" example:"1500" doc:"Frames encoded"`
	FPS         float64   `json:"fps" example:"25" doc:"Encoding frame rate"`
	BitrateKbps float64   `json:"bitrate_kbps" example:"2496.3" doc:"Output bitrate in kbit/s"`
	Speed       float64   `json:"speed" example:"1.01" doc:"Encoding speed relative to realtime"`
	Time        string    `json:"time,omitempty" example:"00:01:00.00" doc:"Stream position"`
	UpdatedAt   time.Time `json:"updated_at" doc:"When the progress line was read"`
}

// StreamInfoData describes the current or most recent encoder session.
type StreamInfoData struct {
	Status       string          `json:"status" example:"running" doc:"Stream status" enum:"idle,starting,running,stopped,error"`
	Message      string          `json:"message" example:"Stream started successfully." doc:"Human readable status message"`
	SessionID    string          `json:"session_id,omitempty" doc:"Current encoder session"`
	PID          int             `json:"pid,omitempty" example:"4242" doc:"Encoder process ID"`
	Running      bool            `json:"running" doc:"Whether an encoder process is held"`
	Stopping     bool            `json:"stopping" doc:"Whether a stop was requested for the held process"`
	StartedAt    *time.Time      `json:"started_at,omitempty" doc:"When the encoder was spawned"`
	LastExitCode *int            `json:"last_exit_code,omitempty" example:"0" doc:"Exit code of the last encoder run"`
	LastExitAt   *time.Time      `json:"last_exit_at,omitempty" doc:"When the last encoder run ended"`
	Progress     *StreamProgress `json:"progress,omitempty" doc:"Latest encoder progress"`
}

type StreamInfoResponse struct {
	Body StreamInfoData
}

// LaunchConfigData is the launch configuration as exposed over the API.
type LaunchConfigData struct {
	SourceURL            string `json:"source_url" example:"https://example.com/live/index.m3u8" doc:"HLS playlist to read from"`
	DestinationURLPrefix string `json:"destination_url_prefix" example:"rtmps://live.example.com:443/app/" doc:"RTMP(S) ingest URL, the stream key is appended verbatim"`
	StreamKey            string `json:"stream_key" example:"****abcd" doc:"Stream key, masked in responses"`
}

type LaunchConfigResponse struct {
	Body LaunchConfigFileData
}

// LaunchConfigFileData wraps the config with where it is stored.
type LaunchConfigFileData struct {
	Path   string           `json:"path" example:"stream.toml" doc:"Launch config file"`
	Valid  bool             `json:"valid" doc:"Whether all required fields are set"`
	Error  string           `json:"error,omitempty" doc:"Load or validation error"`
	Config LaunchConfigData `json:"config" doc:"Launch configuration"`
}

// LaunchConfigUpdateRequest replaces the launch configuration.
type LaunchConfigUpdateRequest struct {
	Body struct {
		SourceURL            string `json:"source_url" minLength:"1" example:"https://example.com/live/index.m3u8" doc:"HLS playlist to read from"`
		DestinationURLPrefix string `json:"destination_url_prefix" minLength:"1" example:"rtmps://live.example.com:443/app/" doc:"RTMP(S) ingest URL prefix"`
		StreamKey            string `json:"stream_key" minLength:"1" example:"sk_live_123456" doc:"Stream key"`
	}
}

// Log models
type LogsRequest struct {
	Limit  int    `query:"limit" minimum:"0" maximum:"10000" default:"200" doc:"Newest entries to return, 0 for all"`
	Module string `query:"module" example:"ffmpeg" doc:"Only entries from this module"`
}

type LogEntryData struct {
	Timestamp  time.Time      `json:"timestamp" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"supervisor" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

type LogsData struct {
	Entries []LogEntryData `json:"entries" doc:"Log entries, oldest first"`
	Count   int            `json:"count" example:"200" doc:"Number of entries returned"`
}

type LogsResponse struct {
	Body LogsData
}
