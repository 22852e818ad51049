package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"inventory/api"
	"inventory/core"
	"inventory/database"
	"inventory/logger"

	"github.com/spf13/cobra"
)

var serverPort string

var serverCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		if serverPort != "" {
			cfg.Server.Port = serverPort
		}
		if cfg.UsesDefaultPassword() {
			logger.Warn("The default password is in use. Set auth.password (or AUTH_PASSWORD) before exposing this server.")
		}
		if err := cfg.EnsureDirectories(); err != nil {
			return err
		}

		store, err := database.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database at %s: %w", cfg.Database.Path, err)
		}
		defer store.Close()

		server := &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           api.NewRouter(store, core.NewUploader(cfg.Uploads), cfg),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logger.Info("Listening on :%s", cfg.Server.Port)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("could not start server: %w", err)
			}
		case <-ctx.Done():
			logger.Info("Shutdown signal received, draining connections...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed: %v", err)
			return err
		}
		logger.Info("Server stopped.")
		return nil
	},
}

func init() {
	serverCmd.Flags().StringVarP(&serverPort, "port", "p", "", "port to listen on (overrides config, default 9000)")
	rootCmd.AddCommand(serverCmd)
}
