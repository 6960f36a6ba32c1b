package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/usbsniff/config"
)

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration.",
	}

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "dump",
			Short: "Print the effective configuration as YAML.",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return config.Dump(a.out, a.cfg)
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Check the configuration and exit.",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				_, err := fmt.Fprintln(a.out, "configuration is valid")
				return err
			},
		},
	)

	return configCmd
}
