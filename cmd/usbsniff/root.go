package main

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/usbsniff/config"
	"github.com/sarchlab/usbsniff/internal/log"
)

// app holds what every subcommand shares once the root command has loaded
// the configuration.
type app struct {
	out, errOut io.Writer

	configFile string
	envFiles   []string

	cfg    config.Config
	logger *logrus.Logger
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	rootCmd := &cobra.Command{
		Use:   "usbsniff",
		Short: "Simulate the two-tier capture buffer of a USB analyzer.",
		Long: `usbsniff simulates the capture pipeline of a USB protocol ` +
			`analyzer cycle by cycle: packets are framed into records in ` +
			`a small on-chip ring, moved through a large SDRAM ring and ` +
			`streamed to the host, where they are decoded.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}

	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "",
		"path to a YAML configuration file")
	rootCmd.PersistentFlags().StringSliceVar(&a.envFiles, "env-file",
		[]string{".env"}, "files of environment variables to load")

	rootCmd.AddCommand(
		newRunCmd(a),
		newMemTestCmd(a),
		newConfigCmd(a),
	)

	return rootCmd
}

func (a *app) load(_ *cobra.Command, _ []string) error {
	if err := config.LoadEnvFiles(a.envFiles...); err != nil {
		return err
	}

	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}

	logger, err := log.New(cfg.Log, a.errOut)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger

	return nil
}
