package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLaunchConfigValidate(t *testing.T) {
	complete := LaunchConfig{
		SourceURL:            "https://example.com/live.m3u8",
		DestinationURLPrefix: "rtmps://live.example.com/app/",
		StreamKey:            "abc",
	}

	tests := []struct {
		name    string
		mutate  func(*LaunchConfig)
		missing string
	}{
		{"complete", func(*LaunchConfig) {}, ""},
		{"no source", func(c *LaunchConfig) { c.SourceURL = "" }, "source_url"},
		{"blank destination", func(c *LaunchConfig) { c.DestinationURLPrefix = "   " }, "destination_url_prefix"},
		{"no key", func(c *LaunchConfig) { c.StreamKey = "" }, "stream_key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := complete
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.missing == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, ErrIncompleteLaunchConfig) {
				t.Fatalf("Validate() = %v, want ErrIncompleteLaunchConfig", err)
			}
			if !strings.Contains(err.Error(), tt.missing) {
				t.Errorf("error %q does not name %s", err, tt.missing)
			}
		})
	}

	err := LaunchConfig{}.Validate()
	if err == nil || !strings.Contains(err.Error(), "source_url, destination_url_prefix, stream_key") {
		t.Errorf("empty config error = %v", err)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"short", "****"},
		{"12345678", "****"},
		{"live_123456789", "****6789"},
	}
	for _, tt := range tests {
		if got := MaskSecret(tt.in); got != tt.want {
			t.Errorf("MaskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	cfg := LaunchConfig{SourceURL: "a", DestinationURLPrefix: "b", StreamKey: "live_123456789"}
	masked := cfg.Masked()
	if masked.StreamKey != "****6789" || masked.SourceURL != "a" {
		t.Errorf("Masked() = %+v", masked)
	}
	if cfg.StreamKey != "live_123456789" {
		t.Error("Masked() modified the receiver")
	}
}

func TestLoadLaunchFileTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.toml")
	content := `source_url = "https://example.com/live.m3u8"
destination_url_prefix = "rtmps://live.example.com/app/"
stream_key = "secret"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadLaunchFile(path)
	if err != nil {
		t.Fatalf("LoadLaunchFile failed: %v", err)
	}
	want := LaunchConfig{
		SourceURL:            "https://example.com/live.m3u8",
		DestinationURLPrefix: "rtmps://live.example.com/app/",
		StreamKey:            "secret",
	}
	if cfg != want {
		t.Errorf("got %+v, want %+v", cfg, want)
	}
}

func TestLoadLaunchFileLegacyJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"m3u8_url": "https://example.com/a.m3u8", "rtmps_url": "rtmps://x/app/", "stream_key": "k"}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadLaunchFile(path)
	if err != nil {
		t.Fatalf("LoadLaunchFile failed: %v", err)
	}
	if cfg.SourceURL != "https://example.com/a.m3u8" || cfg.DestinationURLPrefix != "rtmps://x/app/" || cfg.StreamKey != "k" {
		t.Errorf("got %+v", cfg)
	}
}

func TestLoadLaunchFileErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadLaunchFile(filepath.Join(dir, "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want ErrNotExist", err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadLaunchFile(bad); err == nil {
		t.Error("expected parse error for malformed JSON")
	}
}

func TestLaunchFileSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"stream.toml", "config.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			file := NewLaunchFile(path)

			cfg := LaunchConfig{
				SourceURL:            "https://example.com/live.m3u8",
				DestinationURLPrefix: "rtmps://live.example.com/app/",
				StreamKey:            "key-with \"quotes\"",
			}
			if err := file.Save(cfg); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			info, err := os.Stat(path)
			if err != nil {
				t.Fatal(err)
			}
			if perm := info.Mode().Perm(); perm != 0o600 {
				t.Errorf("file mode = %o, want 600", perm)
			}

			got, err := file.Load(t.Context())
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if got != cfg {
				t.Errorf("got %+v, want %+v", got, cfg)
			}
		})
	}
}

func TestLaunchFileSaveRejectsIncomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.toml")
	file := NewLaunchFile(path)

	err := file.Save(LaunchConfig{SourceURL: "https://example.com/live.m3u8"})
	if !errors.Is(err, ErrIncompleteLaunchConfig) {
		t.Fatalf("Save() = %v, want ErrIncompleteLaunchConfig", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("incomplete config should not be written")
	}
}

func TestNewLaunchFileDefaultPath(t *testing.T) {
	if got := NewLaunchFile("").Path(); got != "stream.toml" {
		t.Errorf("Path() = %q, want stream.toml", got)
	}
}

func TestStaticLaunch(t *testing.T) {
	want := LaunchConfig{SourceURL: "s", DestinationURLPrefix: "d", StreamKey: "k"}
	got, err := StaticLaunch(want).Load(t.Context())
	if err != nil || got != want {
		t.Errorf("Load() = %+v, %v", got, err)
	}
}
