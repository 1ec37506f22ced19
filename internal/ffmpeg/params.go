package ffmpeg

// Profile holds the transcode settings applied to every stream.
// The values are fixed; only input and output targets vary per launch.
type Profile struct {
	// Video
	VideoCodec string
	Preset     string
	Bitrate    string
	MaxRate    string
	BufferSize string
	PixFmt     string
	GOP        string

	// Audio
	AudioCodec   string
	AudioBitrate string
	SampleRate   string

	// Output container
	Format string
}

// DefaultProfile is the live-streaming profile used for RTMP(S) ingest:
// H.264 capped at 3 Mbps with a 2 second keyframe interval at 25 fps,
// AAC stereo at 44.1 kHz, FLV container.
var DefaultProfile = Profile{
	VideoCodec:   "libx264",
	Preset:       "veryfast",
	Bitrate:      "2500k",
	MaxRate:      "3000k",
	BufferSize:   "6000k",
	PixFmt:       "yuv420p",
	GOP:          "50",
	AudioCodec:   "aac",
	AudioBitrate: "128k",
	SampleRate:   "44100",
	Format:       "flv",
}

// Params represents the per-launch inputs to the encoder command.
type Params struct {
	Binary    string // ffmpeg executable, resolved via PATH when not absolute
	SourceURL string // HLS playlist or any ffmpeg-readable input
	OutputURL string // destination prefix and stream key, already joined
	Profile   Profile
}
