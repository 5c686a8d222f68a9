package main

import (
	"os/signal"
	"syscall"

	"github.com/couchcryptid/dsd-laf/internal/observability"
	"github.com/spf13/cobra"
)

func newFitCmd() *cobra.Command {
	var flags manifestFlags
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Run one fit and write the fit table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := flags.resolve(cmd)
			if err != nil {
				return err
			}
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p := newPipeline(cfg, m, true, logger, observability.NewMetrics())
			defer func() {
				if err := p.Close(); err != nil {
					logger.Error("sink close error", "error", err)
				}
			}()

			run, err := p.Run(ctx)
			if err != nil {
				return err
			}
			logger.Info("fit written",
				"run_id", run.ID,
				"output", m.Output,
				"rows", len(run.Rows),
				"skipped", run.Skipped,
				"exhausted", run.Exhausted,
			)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
