package ffmpeg

import "testing"

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantLevel string
		wantMsg   string
	}{
		{"plain", "Input #0, hls, from 'http://x/stream.m3u8':", "info", "Input #0, hls, from 'http://x/stream.m3u8':"},
		{"level tag", "[error] Connection refused", "error", "Connection refused"},
		{"component and level", "[flv @ 0x55d1] [warning] Failed to update header", "warning", "[flv @ 0x55d1] Failed to update header"},
		{"component only", "[hls @ 0x55d1] Opening 'seg1.ts' for reading", "info", "[hls @ 0x55d1] Opening 'seg1.ts' for reading"},
		{"progress demoted", "frame=  250 fps= 25 q=28.0 size=    1024kB time=00:00:10.00 bitrate= 838.9kbits/s speed=1.00x", "debug", "frame=  250 fps= 25 q=28.0 size=    1024kB time=00:00:10.00 bitrate= 838.9kbits/s speed=1.00x"},
		{"short", "[]", "info", "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, msg := ParseLogLevel(tt.line)
			if level != tt.wantLevel {
				t.Errorf("level = %q, want %q", level, tt.wantLevel)
			}
			if msg != tt.wantMsg {
				t.Errorf("msg = %q, want %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestIsErrorLine(t *testing.T) {
	tests := []struct {
		line   string
		marker string
		want   bool
	}{
		{"Error opening input files: Server returned 404 Not Found", DefaultErrorMarker, true},
		{"[tls @ 0x1] Error in the pull function.", DefaultErrorMarker, true},
		{"error: lowercase is not the marker", DefaultErrorMarker, false},
		{"Stream mapping:", DefaultErrorMarker, false},
		{"Error anything", "", false},
		{"Conversion failed!", "failed", true},
	}

	for _, tt := range tests {
		if got := IsErrorLine(tt.line, tt.marker); got != tt.want {
			t.Errorf("IsErrorLine(%q, %q) = %v, want %v", tt.line, tt.marker, got, tt.want)
		}
	}
}
