package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpAdapter "github.com/byland-ai/byland/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Serves the onboarding and trip planning JSON API, the OpenAPI document and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := setup(cmd)
		if err != nil {
			return err
		}
		defer deps.close()

		if cmd.Flags().Changed("port") {
			deps.cfg.HTTP.Port, _ = cmd.Flags().GetString("port")
		}
		logger := deps.app.Logger()

		handler, err := httpAdapter.NewHandler(deps.app.Sessions(), deps.app.Planner(),
			httpAdapter.WithLogger(logger),
			httpAdapter.WithMaxInputSize(deps.cfg.Input.MaxSize),
			httpAdapter.WithCORSOrigins(deps.cfg.HTTP.CORSOrigins...),
			httpAdapter.WithMetricsHandler(deps.metrics.Handler()),
		)
		if err != nil {
			return fmt.Errorf("build http handler: %w", err)
		}

		srv := &http.Server{
			Addr:              ":" + deps.cfg.HTTP.Port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("Starting Byland server", "address", srv.Addr, "store", deps.cfg.Store.Driver)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("Start shutdown", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("Graceful shutdown did not complete", "error", err)
				return srv.Close()
			}
			logger.Info("Byland server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on (overrides http.port)")
}
