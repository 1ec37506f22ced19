package process

import (
	"log/slog"
	"time"

	"github.com/smazurov/restreamer/internal/ffmpeg"
)

// DefaultStopGracePeriod is how long a stopped encoder may take to exit
// before it is killed.
const DefaultStopGracePeriod = 10 * time.Second

// StateChangeCallback is called after every status transition, outside the
// supervisor lock.
type StateChangeCallback func(sessionID string, oldStatus, newStatus Status)

// ProgressCallback receives parsed encoder progress lines.
type ProgressCallback func(sessionID string, p ffmpeg.Progress)

// Options configures a Supervisor.
type Options struct {
	// Binary is the encoder executable. Defaults to ffmpeg.DefaultBinary.
	Binary string

	// Profile overrides ffmpeg.DefaultProfile when non-nil.
	Profile *ffmpeg.Profile

	// ErrorMarker is the substring that flags a stderr line as an error.
	// Defaults to ffmpeg.DefaultErrorMarker.
	ErrorMarker string

	// StopGracePeriod bounds the wait between SIGINT and SIGKILL.
	// Zero uses DefaultStopGracePeriod; negative disables escalation.
	StopGracePeriod time.Duration

	// Spawner launches the encoder. Defaults to an ExecSpawner logging
	// output through OutputLogger.
	Spawner Spawner

	// Logger for supervisor messages. If nil, uses slog.Default().
	Logger *slog.Logger

	// OutputLogger for encoder output when the default spawner is used.
	OutputLogger *slog.Logger

	// OnStateChange is called after status transitions (optional). Calls
	// are serialized and arrive in transition order; a transition already
	// superseded when its turn comes is skipped. It must not call back into
	// the Supervisor's Start, Stop or Shutdown.
	OnStateChange StateChangeCallback

	// OnProgress is called for each parsed progress line (optional). main
	// publishes these as stream-progress events.
	OnProgress ProgressCallback
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.Binary == "" {
		out.Binary = ffmpeg.DefaultBinary
	}
	if out.Profile == nil {
		p := ffmpeg.DefaultProfile
		out.Profile = &p
	}
	if out.ErrorMarker == "" {
		out.ErrorMarker = ffmpeg.DefaultErrorMarker
	}
	if out.StopGracePeriod == 0 {
		out.StopGracePeriod = DefaultStopGracePeriod
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	if out.Spawner == nil {
		out.Spawner = &ExecSpawner{
			Logger:       out.Logger,
			OutputLogger: out.OutputLogger,
			LogParser:    ffmpeg.ParseLogLevel,
		}
	}
	return out
}
