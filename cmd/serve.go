package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mstanton/overseer/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the HTTP API and the review consumer. Artifacts submitted via
POST /api/v1/reviews are queued and reviewed by the same pipeline the
watcher uses. By default it listens on port 8080; use --port to change it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun()
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	_ = viper.BindPFlag("serve.port", serveCmd.Flags().Lookup("port"))
	rootCmd.AddCommand(serveCmd)
}

func serveRun() error {
	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
	defer stop()

	log := newLogger()
	pipe, s, err := buildPipeline(ctx, log)
	if err != nil {
		return err
	}

	go pipe.Run(ctx)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", viper.GetInt("serve.port")),
		Handler: api.NewServer(s, pipe, newBuilder()).Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		ui.Info("serving API at http://localhost%s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
