package ffmpeg

import (
	"strconv"
	"strings"
)

// Progress is one parsed ffmpeg status line, e.g.
//
//	frame=  250 fps= 25 q=28.0 size=    1024kB time=00:00:10.00 bitrate= 838.9kbits/s speed=1.00x
//
// Fields ffmpeg reports as N/A are left at zero.
type Progress struct {
	Frame       int64
	FPS         float64
	BitrateKbps float64
	Speed       float64
	Time        string
}

// ParseProgress parses a periodic status line. The second return value is
// false for any line that is not a status line.
func ParseProgress(line string) (Progress, bool) {
	if !strings.Contains(line, "time=") || !strings.Contains(line, "bitrate=") {
		return Progress{}, false
	}

	// ffmpeg pads values after '=' for alignment
	for strings.Contains(line, "= ") {
		line = strings.ReplaceAll(line, "= ", "=")
	}

	var p Progress
	for _, field := range strings.Fields(line) {
		key, value, found := strings.Cut(field, "=")
		if !found || value == "" || value == "N/A" {
			continue
		}
		switch key {
		case "frame":
			if n, err := strconv.ParseInt(value, 10, 64); err == nil {
				p.Frame = n
			}
		case "fps":
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				p.FPS = f
			}
		case "bitrate":
			if f, err := strconv.ParseFloat(strings.TrimSuffix(value, "kbits/s"), 64); err == nil {
				p.BitrateKbps = f
			}
		case "speed":
			if f, err := strconv.ParseFloat(strings.TrimSuffix(value, "x"), 64); err == nil {
				p.Speed = f
			}
		case "time":
			p.Time = value
		}
	}
	return p, true
}
