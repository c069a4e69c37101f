package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"EnigmaNetz/Enigma-Netmon/internal/counters"
)

func newSnapshotCmd(root *rootOptions) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print one reading of all interface counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if source == "" {
				source = cfg.Monitor.CounterSource
			}
			snap, err := counters.NewReader(source).Read()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, iface := range snap.Interfaces() {
				c, _ := snap.Get(iface)
				var cols []string
				for _, f := range counters.Fields() {
					cols = append(cols, fmt.Sprintf("%s=%d", f.Name(), c.Get(f)))
				}
				fmt.Fprintf(out, "%s: %s\n", iface, strings.Join(cols, " "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "counter source file (default from config)")
	return cmd
}
