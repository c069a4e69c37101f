package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"EnigmaNetz/Enigma-Netmon/internal/capture"
	"EnigmaNetz/Enigma-Netmon/internal/counters"
	"EnigmaNetz/Enigma-Netmon/internal/logger"
	"EnigmaNetz/Enigma-Netmon/internal/metadata"
	"EnigmaNetz/Enigma-Netmon/internal/metrics"
	"EnigmaNetz/Enigma-Netmon/internal/monitor"
	"EnigmaNetz/Enigma-Netmon/internal/report"
	"EnigmaNetz/Enigma-Netmon/internal/summary"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var (
		threshold uint64
		interval  int
		noSudo    bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the monitor loop until interrupted",
		Long: `Run the monitor loop. The first reading only primes the baseline; every
following tick prints the RX and TX counter changes and starts a capture on
each interface that crossed the threshold. Stops on SIGINT or SIGTERM after
canceling and waiting for running captures.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("threshold") {
				cfg.Monitor.Threshold = threshold
			}
			if flags.Changed("interval") {
				cfg.Monitor.IntervalSeconds = interval
			}
			if noSudo {
				cfg.Capture.UseSudo = false
			}
			if err := cfg.ValidateAndSetDefaults(); err != nil {
				return err
			}

			log := logger.GetLogger()
			host := metadata.Collect()
			log.Info("[netmon] session %s on %s (%s %s, %s), version %s", host.SessionID, host.Hostname, host.OSName, host.OSVersion, host.Arch, host.Version)
			if cfg.Source != "" {
				log.Info("[netmon] config loaded from %s", cfg.Source)
			} else {
				log.Info("[netmon] no config file found, using defaults")
			}

			ctx := cmd.Context()
			if cfg.Metrics.Enabled {
				srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
				if err := srv.Start(ctx); err != nil {
					return err
				}
				defer srv.Stop(context.Background())
			}

			printer := report.NewPrinter(cmd.OutOrStdout())
			summarizer := summary.New(summary.OptionsFromConfig(cfg), printer)
			orchestrator := capture.NewOrchestrator(capture.OptionsFromConfig(cfg), summarizer)
			reader := counters.NewReader(cfg.Monitor.CounterSource)

			m := monitor.New(monitor.OptionsFromConfig(cfg), reader, orchestrator, printer)
			if err := m.Run(ctx); err != nil {
				return fmt.Errorf("monitor stopped: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&threshold, "threshold", 0, "per-interval counter change that triggers a capture")
	cmd.Flags().IntVar(&interval, "interval", 0, "sampling interval in seconds")
	cmd.Flags().BoolVar(&noSudo, "no-sudo", false, "run the capture program without sudo")
	return cmd
}
