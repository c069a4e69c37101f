package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"EnigmaNetz/Enigma-Netmon/config"
	"EnigmaNetz/Enigma-Netmon/internal/version"
)

// rootOptions holds the global flags.
type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "enigma-netmon",
		Short: "Enigma Netmon - interface traffic anomaly monitor",
		Long: `Enigma Netmon samples per-interface traffic counters on a fixed interval,
reports the change of every counter, and when an interface moves more than the
configured threshold in one interval it records a short packet capture on that
interface and prints a summary of the capture.

Configuration is read from --config, /etc/enigma-netmon/config.json or
./config.json (JSON or YAML). Every option can be overridden with a NETMON_
environment variable, e.g. NETMON_MONITOR_THRESHOLD=5000000. Without any
configuration the monitor runs on built-in defaults.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file path")

	root.AddCommand(
		newRunCmd(opts),
		newSnapshotCmd(opts),
		newSummarizeCmd(opts),
		newCollectLogsCmd(opts),
		newVersionCmd(),
	)
	return root
}

// load reads the configuration and sets up logging.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.InitializeLogging(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Version)
		},
	}
}
