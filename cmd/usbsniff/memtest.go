package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/usbsniff/traffic"
)

var errSelfTestFailed = errors.New("memory self test failed")

func newMemTestCmd(a *app) *cobra.Command {
	var patterns []string

	cmd := &cobra.Command{
		Use:   "memtest",
		Short: "Run the built-in memory self test.",
		Long: `memtest writes each pattern over the test window of the ` +
			`SDRAM in one burst, reads it back and counts the words that ` +
			`differ.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("pattern") {
				a.cfg.MemTest.Patterns = patterns
			}

			return a.memTest()
		},
	}

	cmd.Flags().StringSliceVarP(&patterns, "pattern", "p", nil,
		"patterns to run, all of them by default")

	return cmd
}

func (a *app) memTest() error {
	ps, err := a.cfg.Patterns()
	if err != nil {
		return err
	}

	b, err := a.cfg.PipelineBuilder(traffic.NewReplay(), a.logger)
	if err != nil {
		return err
	}

	comp := b.Build("Board")

	results, err := comp.SelfTest(a.cfg.MemTest.Limit, ps...)
	if err != nil {
		return err
	}

	failed := 0

	for _, r := range results {
		status := "PASS"
		if !r.OK {
			status = "FAIL"
			failed++
		}

		fmt.Fprintf(a.out, "%-6s %s errors=%d first_fail=%#x cycles=%d\n",
			r.Pattern, status, r.Errors, r.FirstFail, r.Cycles)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d passes", errSelfTestFailed,
			failed, len(results))
	}

	return nil
}
