package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doeshing/phishnet-go/internal/domain"
)

// NewScanCommand creates the scan command
func NewScanCommand(provide ContainerProvider) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scan <url>",
		Short: "Check a single URL against the scan endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			container, err := provide(ctx)
			if err != nil {
				return err
			}

			token := ""
			if container.Tokens != nil {
				if token, err = container.Tokens.Token(ctx); err != nil {
					container.Logger.Warn("access token unavailable", map[string]interface{}{"error": err.Error()})
				}
			}

			result := container.Scanner.Scan(ctx, args[0], token)
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					URL string `json:"url"`
					domain.ScanResult
				}{args[0], result})
			}

			fmt.Fprintf(out, "%s  %s\n", colorVerdict(result.Verdict), args[0])
			renderThreats(out, result.Threats)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the normalized result as JSON")
	return cmd
}
