package ffmpeg

import "strings"

// DefaultErrorMarker is the substring that flags an encoder stderr line as fatal.
// ffmpeg prefixes most unrecoverable conditions with "Error" (Error opening input,
// Error while decoding, Error writing trailer, ...).
const DefaultErrorMarker = "Error"

// IsErrorLine reports whether a diagnostic line contains the error marker.
// Matching is case-sensitive. An empty marker disables classification.
func IsErrorLine(line, marker string) bool {
	if marker == "" {
		return false
	}
	return strings.Contains(line, marker)
}

// ParseLogLevel extracts the log level from ffmpeg output.
// FFmpeg with -loglevel level+info outputs lines like "[info] message"
// or "[component @ 0x...] [level] message" for component-specific logs.
// Lines without a level tag are reported as info, except progress lines
// which are demoted to debug so they don't flood the log.
func ParseLogLevel(line string) (level, msg string) {
	if len(line) < 3 || line[0] != '[' {
		if _, ok := ParseProgress(line); ok {
			return "debug", line
		}
		return "info", line
	}

	end := strings.Index(line, "] ")
	if end == -1 {
		return "info", line
	}

	bracket := line[1:end]

	if isLogLevel(bracket) {
		return bracket, line[end+2:]
	}

	// Keep the component, strip only the [level]
	component := line[:end+2]
	rest := line[end+2:]
	if len(rest) > 2 && rest[0] == '[' {
		if nextEnd := strings.Index(rest, "] "); nextEnd != -1 {
			nextBracket := rest[1:nextEnd]
			if isLogLevel(nextBracket) {
				return nextBracket, component + rest[nextEnd+2:]
			}
		}
	}

	return "info", line
}

func isLogLevel(s string) bool {
	switch s {
	case "quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug", "trace":
		return true
	}
	return false
}
