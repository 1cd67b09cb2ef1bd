package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"
)

const version = "2.0.0"

func newRootCommand(logger pslog.Logger) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "smartdoor",
		Short:         "Proximity-card door lock controller",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to smartdoor.toml (default: search ./ and ~/.config/smartdoor)")

	root.AddCommand(newStartCommand(logger, &configPath))
	root.AddCommand(newConfigCommand(&configPath))
	root.AddCommand(newVersionCommand())

	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the smartdoor version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}
