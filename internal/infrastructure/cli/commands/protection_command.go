package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/doeshing/phishnet-go/internal/app"
	"github.com/doeshing/phishnet-go/internal/domain"
	"github.com/doeshing/phishnet-go/internal/pkg/filesystem"
)

// NewProtectionCommand creates the protection command with its subcommands
func NewProtectionCommand(provide ContainerProvider) *cobra.Command {
	protectionCmd := &cobra.Command{
		Use:   "protection",
		Short: "Show or change whether navigations are intercepted",
	}

	protectionCmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show the persisted protection state",
			RunE: func(cmd *cobra.Command, args []string) error {
				container, err := provide(cmd.Context())
				if err != nil {
					return err
				}
				guard, err := container.RequireGuard()
				if err != nil {
					return err
				}
				renderProtection(cmd.OutOrStdout(), guard.Protection().Get())
				return nil
			},
		},
		newProtectionToggle(provide, "on", true),
		newProtectionToggle(provide, "off", false),
	)
	return protectionCmd
}

func newProtectionToggle(provide ContainerProvider, use string, protect bool) *cobra.Command {
	var alwaysOn bool

	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Turn protection %s", use),
		RunE: func(cmd *cobra.Command, args []string) error {
			update := domain.ProtectionUpdate{IsProtected: &protect}
			if cmd.Flags().Changed("always-on") {
				update.AlwaysOn = &alwaysOn
			}
			container, err := provide(cmd.Context())
			if err != nil {
				return err
			}
			return setProtection(cmd.Context(), cmd.OutOrStdout(), container, update)
		},
	}

	cmd.Flags().BoolVar(&alwaysOn, "always-on", false, "Also set the always-on flag")
	return cmd
}

// setProtection persists through the store, or through the watched state
// directory when a running server holds the store.
func setProtection(ctx context.Context, out io.Writer, container *app.Container, update domain.ProtectionUpdate) error {
	if guard, err := container.RequireGuard(); err == nil {
		state, err := guard.Protection().Persist(ctx, update)
		if err != nil {
			return err
		}
		renderProtection(out, state)
		return nil
	}

	dir := container.Config.Storage.WatchDir
	if dir == "" {
		return fmt.Errorf("%w (set storage.watch_dir to change state while the server runs)", container.StoreErr)
	}
	raw, err := json.Marshal(update)
	if err != nil {
		return err
	}
	dir = filesystem.ExpandPath(dir)
	if err := os.MkdirAll(dir, domain.DirectoryPermissions); err != nil {
		return err
	}
	path := filepath.Join(dir, container.Config.StorageKeys.Protection+".json")
	if err := os.WriteFile(path, raw, domain.SecureFilePermissions); err != nil {
		return err
	}
	fmt.Fprintf(out, "Protection update handed to running server via %s\n", path)
	return nil
}

func renderProtection(out io.Writer, state domain.ProtectionState) {
	fmt.Fprintf(out, "Protection: %s\n", onOff(state.IsProtected))
	fmt.Fprintf(out, "Always on:  %s\n", onOff(state.AlwaysOn))
}
