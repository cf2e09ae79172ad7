package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/propanelib/propane/service"
)

// shutdownTimeout bounds graceful HTTP shutdown on exit.
const shutdownTimeout = 10 * time.Second

func serveCmd(opts *rootOptions) *cobra.Command {
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the catalog as a resolution service",
		Long: `Serve loads the catalog once, freezes a snapshot and answers
resolution requests over HTTP and NATS. Prometheus metrics are exposed
on /metrics. Registration is closed while the service runs; restart to
pick up new definitions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, cfg, err := loadCatalog(opts)
			if err != nil {
				return err
			}
			if httpAddr != "" {
				cfg.Serve.HTTPAddr = httpAddr
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			svc := service.New(cfg, cat.Snapshot(), slog.Default())
			if err := svc.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			slog.Info("Received shutdown signal")

			stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stopCancel()
			if err := svc.Stop(stopCtx); err != nil {
				return fmt.Errorf("stop service: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP listen address (overrides config)")

	return cmd
}
