package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	collect_logs "EnigmaNetz/Enigma-Netmon/internal/collect_logs"
	"EnigmaNetz/Enigma-Netmon/internal/metadata"
)

func newCollectLogsCmd(root *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "collect-logs",
		Short: "Package logs, captures, config, and diagnostics into a zip archive for support",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if output == "" {
				output = fmt.Sprintf("netmon-logs-%s.zip", time.Now().Format("20060102-150405"))
			}
			err = collect_logs.CollectLogs(output, collect_logs.Sources{
				LogFile:       cfg.Logging.File,
				CaptureDir:    cfg.Capture.OutputDir,
				ConfigFile:    cfg.Source,
				CounterSource: cfg.Monitor.CounterSource,
				Host:          metadata.Collect(),
			})
			if err != nil {
				return fmt.Errorf("failed to collect logs: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s with logs, captures, config, and diagnostics.\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "zip file to write")
	return cmd
}
