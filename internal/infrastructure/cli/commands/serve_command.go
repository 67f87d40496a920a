package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/phishnet-go/internal/app"
	"github.com/doeshing/phishnet-go/internal/domain"
	"github.com/doeshing/phishnet-go/internal/infrastructure/storage"
	"github.com/doeshing/phishnet-go/internal/infrastructure/transport"
	"github.com/doeshing/phishnet-go/internal/pkg/filesystem"
)

// NewServeCommand creates the serve command
func NewServeCommand(provide ContainerProvider) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the navigation guard for connected browsers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			container, err := provide(ctx)
			if err != nil {
				return err
			}
			if listen == "" {
				listen = container.Config.Server.Listen
			}
			return serve(ctx, cmd, container, listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from config)")
	return cmd
}

func serve(ctx context.Context, cmd *cobra.Command, container *app.Container, listen string) error {
	guard, err := container.RequireGuard()
	if err != nil {
		return err
	}

	if dir := container.Config.Storage.WatchDir; dir != "" {
		keys := container.Config.StorageKeys
		watcher, err := storage.NewStateFileWatcher(filesystem.ExpandPath(dir), container.Store, container.Logger, keys.Protection, keys.AccessToken)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	settings := container.Config.Server
	settings.Listen = listen
	access := transport.NewAccessPolicy(settings)
	router := transport.NewServer(guard, container.Dispatcher, container.Hub, container.Cache, access, container.Logger).Router()
	srv := &http.Server{
		Addr:              listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	state := guard.Protection().Get()
	fmt.Fprintf(cmd.OutOrStdout(), "PhishNet guard listening on %s (protection %s)\n", listen, onOff(state.IsProtected))
	fmt.Fprintf(cmd.OutOrStdout(), "Scan endpoint: %s\n", container.Scanner.Endpoint())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), domain.DefaultShutdownTimeout)
	defer cancel()
	container.Hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "PhishNet guard stopped")
	return nil
}
