package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/restreamer/cmd"
	"github.com/smazurov/restreamer/internal/api"
	"github.com/smazurov/restreamer/internal/config"
	"github.com/smazurov/restreamer/internal/events"
	"github.com/smazurov/restreamer/internal/ffmpeg"
	"github.com/smazurov/restreamer/internal/logging"
	"github.com/smazurov/restreamer/internal/metrics"
	"github.com/smazurov/restreamer/internal/process"
	"github.com/smazurov/restreamer/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Address to listen on" short:"p" default:":5000" toml:"server.port" env:"SERVER_PORT"`

	// Stream settings
	StreamConfigFile  string `help:"Launch config file (TOML, or JSON with m3u8_url/rtmps_url/stream_key)" default:"stream.toml" toml:"stream.config_file" env:"STREAM_CONFIG_FILE"`
	StreamWatchConfig bool   `help:"Watch the launch config file and publish change events" default:"true" toml:"stream.watch_config" env:"STREAM_WATCH_CONFIG"`

	// Encoder settings
	EncoderBinary          string `help:"Encoder executable" default:"ffmpeg" toml:"encoder.binary" env:"ENCODER_BINARY"`
	EncoderErrorMarker     string `help:"Substring that marks an encoder stderr line as an error" default:"Error" toml:"encoder.error_marker" env:"ENCODER_ERROR_MARKER"`
	EncoderStopGracePeriod string `help:"Time between SIGINT and SIGKILL on stop" default:"10s" toml:"encoder.stop_grace_period" env:"ENCODER_STOP_GRACE_PERIOD"`

	// Metrics settings
	MetricsEnabled bool `help:"Serve Prometheus metrics at /metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// Logging settings
	LoggingLevel      string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat     string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingBufferSize int    `help:"Log entries kept in memory for /api/logs" default:"1000" toml:"logging.buffer_size" env:"LOGGING_BUFFER_SIZE"`
	LoggingSupervisor string `help:"Supervisor logging level" default:"info" toml:"logging.supervisor" env:"LOGGING_SUPERVISOR"`
	LoggingEncoder    string `help:"Encoder output logging level" default:"info" toml:"logging.encoder" env:"LOGGING_ENCODER"`
	LoggingAPI        string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP       string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
}

func main() {
	var cli humacli.CLI

	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// CLI flags win over env, env wins over the config file
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:      opts.LoggingLevel,
			Format:     opts.LoggingFormat,
			BufferSize: opts.LoggingBufferSize,
			Modules: map[string]string{
				logging.ModuleSupervisor: opts.LoggingSupervisor,
				logging.ModuleEncoder:    opts.LoggingEncoder,
				logging.ModuleAPI:        opts.LoggingAPI,
				logging.ModuleHTTP:       opts.LoggingHTTP,
			},
		})

		logger := logging.GetLogger(logging.ModuleMain)
		logger.Info("Starting restreamer", "build", version.Banner())

		gracePeriod, err := time.ParseDuration(opts.EncoderStopGracePeriod)
		if err != nil {
			logger.Warn("Invalid stop grace period, using default",
				"value", opts.EncoderStopGracePeriod, "default", process.DefaultStopGracePeriod)
			gracePeriod = process.DefaultStopGracePeriod
		}

		// Create event bus for in-process event handling
		eventBus := events.New()
		detachLogs := events.ForwardLogs(eventBus)

		launch := config.NewLaunchFile(opts.StreamConfigFile)

		supervisor := process.NewSupervisor(&process.Options{
			Binary:          opts.EncoderBinary,
			ErrorMarker:     opts.EncoderErrorMarker,
			StopGracePeriod: gracePeriod,
			Logger:          logging.GetLogger(logging.ModuleSupervisor),
			OutputLogger:    logging.GetLogger(logging.ModuleEncoder),
			OnStateChange: func(sessionID string, oldStatus, newStatus process.Status) {
				eventBus.Publish(events.StreamStatusChangedEvent{
					SessionID:       sessionID,
					Status:          string(newStatus.State),
					Message:         newStatus.Message,
					PreviousStatus:  string(oldStatus.State),
					PreviousMessage: oldStatus.Message,
					Timestamp:       time.Now().Format(time.RFC3339),
				})
			},
			OnProgress: func(sessionID string, p ffmpeg.Progress) {
				eventBus.Publish(events.NewStreamProgressEvent(sessionID, p))
			},
		})

		var watcher *config.Watcher[config.LaunchConfig]
		if opts.StreamWatchConfig {
			watcher = newLaunchWatcher(launch.Path(), eventBus)
		}

		var metricsHandler http.Handler
		if opts.MetricsEnabled {
			metricsHandler = metrics.HTTPHandler()
		}

		server := api.NewServer(&api.Options{
			Controller:     supervisor,
			Launch:         launch,
			EventBus:       eventBus,
			MetricsHandler: metricsHandler,
			OnReady: func(_ string) {
				if _, notifyErr := daemon.SdNotify(false, daemon.SdNotifyReady); notifyErr != nil {
					logger.Debug("sd_notify failed", "error", notifyErr)
				}
			},
		})

		hooks.OnStart(func() {
			if watcher != nil {
				if startErr := watcher.Start(); startErr != nil {
					logger.Warn("Failed to start launch config watcher", "path", launch.Path(), "error", startErr)
				}
			}

			logger.Info("Starting HTTP server", "port", opts.Port, "launch_config", launch.Path())
			if startErr := server.Start(opts.Port); startErr != nil {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			// Stop the encoder after the HTTP server stops accepting requests
			ctx, cancel := context.WithTimeout(context.Background(), gracePeriod+5*time.Second)
			defer cancel()
			if shutdownErr := supervisor.Shutdown(ctx); shutdownErr != nil {
				logger.Error("Encoder did not shut down cleanly", "error", shutdownErr)
			}

			if watcher != nil {
				if stopErr := watcher.Stop(); stopErr != nil {
					logger.Warn("Error stopping launch config watcher", "error", stopErr)
				}
			}
			detachLogs()
		})
	})

	cli.Root().Use = "restreamer"
	cli.Root().Short = "HLS to RTMP(S) restream controller"
	cli.Root().Version = version.String()

	cli.Root().AddCommand(cmd.CreateRunCmd())
	cli.Root().AddCommand(cmd.CreateCheckConfigCmd())
	cli.Root().AddCommand(cmd.CreateVersionCmd())

	// Run the CLI
	cli.Run()
}

// newLaunchWatcher publishes a LaunchConfigChangedEvent whenever the launch
// file changes on disk. The supervisor itself always reads the file fresh.
func newLaunchWatcher(path string, bus *events.Bus) *config.Watcher[config.LaunchConfig] {
	publish := func(valid bool, err error) {
		ev := events.LaunchConfigChangedEvent{
			Path:      path,
			Valid:     valid,
			Source:    "file",
			Timestamp: time.Now().Format(time.RFC3339),
		}
		if err != nil {
			ev.Error = err.Error()
		}
		bus.Publish(ev)
	}

	watcher := config.NewConfigWatcher(
		path,
		config.LoadLaunchFile,
		logging.GetLogger(logging.ModuleConfig),
		config.WithErrorHandler[config.LaunchConfig](func(err error) {
			publish(false, err)
		}),
	)
	watcher.OnReload(func(cfg config.LaunchConfig) {
		err := cfg.Validate()
		publish(err == nil, err)
	})
	return watcher
}
