package ffmpeg

import "strings"

// DefaultBinary is the encoder executable used when none is configured.
const DefaultBinary = "ffmpeg"

// OutputURL joins the destination prefix and stream key into a single target.
// The two are concatenated as-is, so the prefix must carry its own trailing slash.
func OutputURL(destinationPrefix, streamKey string) string {
	return destinationPrefix + streamKey
}

// BuildArgs returns the full argv (binary first) for an encoder run.
func BuildArgs(p *Params) []string {
	binary := p.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	prof := p.Profile

	return []string{
		binary,
		"-i", p.SourceURL,
		"-c:v", prof.VideoCodec,
		"-preset", prof.Preset,
		"-b:v", prof.Bitrate,
		"-maxrate", prof.MaxRate,
		"-bufsize", prof.BufferSize,
		"-pix_fmt", prof.PixFmt,
		"-g", prof.GOP,
		"-c:a", prof.AudioCodec,
		"-b:a", prof.AudioBitrate,
		"-ar", prof.SampleRate,
		"-f", prof.Format,
		p.OutputURL,
	}
}

// CommandString renders argv as a shell-like string for logs and dry runs.
// Arguments containing whitespace or quotes are single-quoted.
func CommandString(argv []string) string {
	var cmd strings.Builder
	for i, arg := range argv {
		if i > 0 {
			cmd.WriteString(" ")
		}
		if arg == "" || strings.ContainsAny(arg, " \t\n'\"") {
			cmd.WriteString("'" + strings.ReplaceAll(arg, "'", `'\''`) + "'")
			continue
		}
		cmd.WriteString(arg)
	}
	return cmd.String()
}
