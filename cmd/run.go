package cmd

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/smazurov/restreamer/internal/config"
	"github.com/smazurov/restreamer/internal/ffmpeg"
	"github.com/smazurov/restreamer/internal/logging"
	"github.com/smazurov/restreamer/internal/process"
	"github.com/spf13/cobra"
)

// CreateRunCmd creates the run command.
func CreateRunCmd() *cobra.Command {
	var configFile string
	var binary string
	var errorMarker string
	var gracePeriod time.Duration
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the encoder in the foreground",
		Long: `Reads the launch config and runs the encoder in the foreground without the HTTP server. ` +
			`SIGINT or SIGTERM stops the encoder gracefully; it is killed if it has not exited after the grace period. ` +
			`Exits with the encoder's exit code.`,
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			loggingConfig := logging.Config{
				Level:  "info",
				Format: "text",
			}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)

			sessionID := uuid.NewString()
			// session id ends up as a journal field
			logger := logging.GetLogger(logging.ModuleSupervisor).With("session", sessionID)

			logger.Info("Starting run command", "config", configFile)

			cfg, err := config.NewLaunchFile(configFile).Load(context.Background())
			if err != nil {
				logger.Error("Failed to read launch config", "error", err, "config", configFile)
				os.Exit(1)
			}
			if err := cfg.Validate(); err != nil {
				logger.Error(process.MsgMissingConfig, "error", err, "config", configFile)
				os.Exit(1)
			}

			argv := process.EncoderArgs(binary, ffmpeg.DefaultProfile, cfg)
			logger.Info("Generated command",
				"command", ffmpeg.CommandString(process.EncoderArgs(binary, ffmpeg.DefaultProfile, cfg.Masked())))

			proc := process.NewProcess(sessionID, argv, logger)
			proc.SetLogParser(logging.GetLogger(logging.ModuleEncoder).With("session", sessionID), ffmpeg.ParseLogLevel)
			proc.SetGracefulTimeout(gracePeriod)
			proc.SetOutputHandler(process.OutputHandlerFunc(func(source, line string) {
				if source == process.SourceStderr && ffmpeg.IsErrorLine(line, errorMarker) {
					logger.Warn("Encoder reported an error", "line", line)
				}
			}))

			exitCode := proc.Run()

			logger.Info("Run command exiting", "exit_code", exitCode)
			os.Exit(exitCode)
		},
	}

	cmd.Flags().StringVar(&configFile, "config-file", "stream.toml", "Launch config file")
	cmd.Flags().StringVar(&binary, "encoder-binary", ffmpeg.DefaultBinary, "Encoder executable")
	cmd.Flags().StringVar(&errorMarker, "error-marker", ffmpeg.DefaultErrorMarker,
		"Substring that marks an encoder stderr line as an error")
	cmd.Flags().DurationVar(&gracePeriod, "grace-period", process.DefaultStopGracePeriod,
		"Time between SIGINT and SIGKILL on shutdown")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")

	return cmd
}
