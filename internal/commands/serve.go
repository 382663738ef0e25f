package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/klabast/wb-services/daily-tracker/internal/app"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the counter API for a local UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := rt.openStore()
			if err != nil {
				return err
			}

			authFile, err := app.ResolveAuthFile(rt.cfg.AuthFile)
			if err != nil {
				return err
			}
			auth, err := app.LoadAuthenticator(authFile, rt.log)
			if err != nil {
				return err
			}

			metrics := app.NewMetrics()
			store.WithMetrics(metrics)
			server := app.NewServer(store, auth, metrics, rt.log)

			srv := &http.Server{
				Addr:              rt.cfg.Listen,
				Handler:           server.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				rt.log.Infof("🚀 Starting Daily Tracker API on http://%s", rt.cfg.Listen)
				rt.log.Infof("Data file: %s", store.Path())
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			rt.log.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().String("listen", app.DefaultListenAddr, "address to listen on")
	cmd.Flags().String("auth-file", "", "auth file for Basic Auth (default $AUTH_FILE or auth.secret next to the binary)")
	if err := rt.v.BindPFlag("listen", cmd.Flags().Lookup("listen")); err != nil {
		panic(err)
	}
	if err := rt.v.BindPFlag("auth_file", cmd.Flags().Lookup("auth-file")); err != nil {
		panic(err)
	}
	return cmd
}
