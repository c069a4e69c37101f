package main

import (
	"github.com/spf13/cobra"

	"EnigmaNetz/Enigma-Netmon/internal/report"
	"EnigmaNetz/Enigma-Netmon/internal/summary"
)

func newSummarizeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <pcap>",
		Short: "Print the capture summary of an existing artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			s := summary.New(summary.OptionsFromConfig(cfg), report.NewPrinter(cmd.OutOrStdout()))
			return s.Summarize(cmd.Context(), args[0])
		},
	}
}
