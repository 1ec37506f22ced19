package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/renameio/v2"
	"github.com/pelletier/go-toml/v2"
)

// ErrIncompleteLaunchConfig is returned when a required launch field is empty.
var ErrIncompleteLaunchConfig = errors.New("missing stream configuration")

// LaunchConfig is everything needed to start one encoder run.
type LaunchConfig struct {
	SourceURL            string `toml:"source_url" json:"source_url"`
	DestinationURLPrefix string `toml:"destination_url_prefix" json:"destination_url_prefix"`
	StreamKey            string `toml:"stream_key" json:"stream_key"`
}

// Validate checks that all three fields are set.
func (c LaunchConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(c.SourceURL) == "" {
		missing = append(missing, "source_url")
	}
	if strings.TrimSpace(c.DestinationURLPrefix) == "" {
		missing = append(missing, "destination_url_prefix")
	}
	if strings.TrimSpace(c.StreamKey) == "" {
		missing = append(missing, "stream_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrIncompleteLaunchConfig, strings.Join(missing, ", "))
	}
	return nil
}

// Masked returns a copy safe to log or return over the API.
func (c LaunchConfig) Masked() LaunchConfig {
	c.StreamKey = MaskSecret(c.StreamKey)
	return c
}

// MaskSecret hides all but the last four characters of long secrets.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// legacyLaunchJSON is the key layout of older config.json deployments.
type legacyLaunchJSON struct {
	M3U8URL   string `json:"m3u8_url"`
	RTMPSURL  string `json:"rtmps_url"`
	StreamKey string `json:"stream_key"`
}

// StaticLaunch is a fixed launch configuration, useful for tests and one-off runs.
type StaticLaunch LaunchConfig

// Load returns the fixed configuration.
func (s StaticLaunch) Load(context.Context) (LaunchConfig, error) {
	return LaunchConfig(s), nil
}

// LaunchFile reads the launch configuration from disk on every Load, so edits
// take effect on the next start without restarting the server.
// Files ending in .json use the legacy key layout, anything else is TOML.
type LaunchFile struct {
	path string
	mu   sync.Mutex
}

// NewLaunchFile creates a file-backed launch configuration source.
func NewLaunchFile(path string) *LaunchFile {
	if path == "" {
		path = "stream.toml"
	}
	return &LaunchFile{path: path}
}

// Path returns the file path.
func (f *LaunchFile) Path() string {
	return f.path
}

// Load reads and decodes the file. It does not validate.
func (f *LaunchFile) Load(_ context.Context) (LaunchConfig, error) {
	return LoadLaunchFile(f.path)
}

// Save validates cfg and atomically replaces the file.
func (f *LaunchFile) Save(cfg LaunchConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := encodeLaunch(f.path, cfg)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	// The stream key is a credential.
	if err := renameio.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write launch config: %w", err)
	}
	return nil
}

// LoadLaunchFile reads a launch configuration file fresh from disk.
func LoadLaunchFile(path string) (LaunchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LaunchConfig{}, err
	}

	if isJSON(path) {
		var legacy legacyLaunchJSON
		if err := json.Unmarshal(data, &legacy); err != nil {
			return LaunchConfig{}, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
		return LaunchConfig{
			SourceURL:            legacy.M3U8URL,
			DestinationURLPrefix: legacy.RTMPSURL,
			StreamKey:            legacy.StreamKey,
		}, nil
	}

	var cfg LaunchConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return LaunchConfig{}, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

func encodeLaunch(path string, cfg LaunchConfig) ([]byte, error) {
	if isJSON(path) {
		data, err := json.MarshalIndent(legacyLaunchJSON{
			M3U8URL:   cfg.SourceURL,
			RTMPSURL:  cfg.DestinationURLPrefix,
			StreamKey: cfg.StreamKey,
		}, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal launch config: %w", err)
		}
		return append(data, '\n'), nil
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal launch config: %w", err)
	}
	return data, nil
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
