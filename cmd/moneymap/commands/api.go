package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/moneymap/moneymap/internal/api"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Serve the HTTP API and run-event websocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		handler := api.NewHandler(a.repo, a.runner, a.db, a.log)
		stream := api.NewRunStreamHandler(a.runner.Events(), a.log)
		router := api.NewRouter(handler, stream, a.log)
		server := api.New(a.cfg, a.log, router)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-stop:
			a.log.WithField("signal", sig.String()).Info("Shutting down")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(apiCmd)
}
