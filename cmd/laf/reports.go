package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/dsd-laf/internal/adapter/tabular"
	"github.com/couchcryptid/dsd-laf/internal/report"
	"github.com/spf13/cobra"
)

func newAccuracyCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "accuracy <fit-table>",
		Short: "Histogram the coefficients of variation of a fit table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := setup()
			if err != nil {
				return err
			}
			_, rows, err := tabular.ReadFitsFile(args[0])
			if err != nil {
				return err
			}

			hist, skipped := report.Accuracy(rows)
			if skipped > 0 {
				logger.Warn("skipped rows without a usable median", "skipped", skipped, "rows", len(rows))
			}

			var buf bytes.Buffer
			if err := report.WriteAccuracy(&buf, hist); err != nil {
				return err
			}
			if err := writeOutput(cmd.OutOrStdout(), output, buf.Bytes()); err != nil {
				return err
			}
			logger.Info("accuracy report written", "input", args[0], "output", output, "bins", len(hist))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "report path (default stdout)")
	return cmd
}

func newCompareCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "compare <fit-table-a> <fit-table-b>",
		Short: "Measure the discrepancy between the fits of two sites",
		Long: `Joins two fit tables on (mu_r, gamma_r) and reports the relative
discrepancy of their medians. With --output, the comparison is written to
<output>#couples and, with the support fractions also reversed, to
<output>#both.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := setup()
			if err != nil {
				return err
			}
			_, a, err := tabular.ReadFitsFile(args[0])
			if err != nil {
				return err
			}
			_, b, err := tabular.ReadFitsFile(args[1])
			if err != nil {
				return err
			}

			c, err := report.Compare(a, b)
			if err != nil {
				return fmt.Errorf("compare %s and %s: %w", args[0], args[1], err)
			}
			logger.Info("fits compared", "site_a", c.SiteA, "site_b", c.SiteB, "couples", c.Couples)

			var couples bytes.Buffer
			if err := report.WriteComparisons(&couples, c); err != nil {
				return err
			}
			if output == "" {
				_, err := cmd.OutOrStdout().Write(couples.Bytes())
				return err
			}

			var both bytes.Buffer
			if err := report.WriteComparisons(&both, c, c.Reverse()); err != nil {
				return err
			}
			if err := writeOutput(nil, output+"#couples", couples.Bytes()); err != nil {
				return err
			}
			return writeOutput(nil, output+"#both", both.Bytes())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path prefix (default stdout, couples only)")
	return cmd
}

// writeOutput writes data to path, or to stdout when path is empty or "-".
func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
