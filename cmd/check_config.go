package cmd

import (
	"context"
	"fmt"

	"github.com/smazurov/restreamer/internal/config"
	"github.com/smazurov/restreamer/internal/ffmpeg"
	"github.com/smazurov/restreamer/internal/process"
	"github.com/spf13/cobra"
)

// CreateCheckConfigCmd creates the check-config command.
func CreateCheckConfigCmd() *cobra.Command {
	var configFile string
	var binary string

	cmd := &cobra.Command{
		Use:   "check-config",
		Short: "Validate the launch config and print the encoder command",
		Long:  `Reads the launch config the same way a start request does and prints the encoder command with the stream key masked.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.NewLaunchFile(configFile).Load(context.Background())
			if err != nil {
				return fmt.Errorf("failed to read launch config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			masked := cfg.Masked()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Launch config %s is valid\n", configFile)
			fmt.Fprintf(out, "  source:      %s\n", masked.SourceURL)
			fmt.Fprintf(out, "  destination: %s\n", masked.DestinationURLPrefix)
			fmt.Fprintf(out, "  stream key:  %s\n", masked.StreamKey)
			fmt.Fprintf(out, "\n%s\n", ffmpeg.CommandString(process.EncoderArgs(binary, ffmpeg.DefaultProfile, masked)))
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config-file", "stream.toml", "Launch config file")
	cmd.Flags().StringVar(&binary, "encoder-binary", ffmpeg.DefaultBinary, "Encoder executable")

	return cmd
}
