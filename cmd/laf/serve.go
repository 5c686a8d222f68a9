package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/dsd-laf/internal/adapter/http"
	"github.com/couchcryptid/dsd-laf/internal/observability"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var flags manifestFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the manifest fit in the background and serve its rows over HTTP",
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
			metrics := observability.NewMetrics()

			// The table sink is only wired when an output path is configured.
			p := newPipeline(cfg, m, m.Output != "", logger, metrics)
			srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server error", "error", err)
				}
			}()

			go func() {
				if _, err := p.Run(ctx); err != nil {
					logger.Error("fit error", "error", err)
				}
			}()

			<-ctx.Done()
			logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
			if err := p.Close(); err != nil {
				logger.Error("sink close error", "error", err)
			}

			logger.Info("shutdown complete")
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
