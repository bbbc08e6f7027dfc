package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/syncrunner/internal/infrastructure/server"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(opts *globalOptions, version string) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run API over HTTP",
		Long: `Start an HTTP server exposing POST /v1/run, /health and /metrics.

The listen address comes from HOST and PORT unless --port is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}

			srv, err := server.NewServer(cfg, logger, version)
			if err != nil {
				return err
			}

			errChan := make(chan error, 1)
			go func() {
				errChan <- srv.Run()
			}()

			select {
			case <-cmd.Context().Done():
				logger.Info("Received shutdown signal")
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(ctx); err != nil {
					logger.Error("Error during shutdown", zap.Error(err))
					return err
				}
				return nil
			case err := <-errChan:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")

	return cmd
}
