package main

import (
	"context"
	"time"

	"github.com/giygas/pharmacy-validator/handlers"
	"github.com/giygas/pharmacy-validator/logging"
	"github.com/giygas/pharmacy-validator/register"
	"github.com/giygas/pharmacy-validator/server"
	"github.com/giygas/pharmacy-validator/validation"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds how long running validations may finish after a
// stop signal
const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the validator over HTTP",
		Long: `Start the HTTP service. Upload a client list to POST /validate and the
annotated report comes back as a download. GET /health and GET /metrics are
available for monitoring.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			validator := validation.NewValidator(register.NewClientFromConfig(cfg), cfg.FetchDelay)
			srv := server.NewServer(cfg, handlers.NewHTTPHandler(validator, cfg))

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			logging.Info("Received shutdown signal")

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}

	cmd.Flags().String("port", "", "port to listen on (overrides PORT)")
	cmd.Flags().String("address", "", "address to bind (overrides ADDRESS)")

	return cmd
}
