package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/doeshing/phishnet-go/internal/domain"
	"github.com/doeshing/phishnet-go/internal/infrastructure/cache"
)

type cacheReport struct {
	Cache      cache.CacheStats            `json:"cache"`
	Pending    []domain.PendingWarning     `json:"pending"`
	Exemptions []domain.AllowOnceExemption `json:"exemptions"`
	Browsers   int                         `json:"browsers"`
}

// NewCacheCommand creates the cache command
func NewCacheCommand(provide ContainerProvider) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the verdict cache of a running server",
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show cache occupancy and pending warnings",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := provide(cmd.Context())
			if err != nil {
				return err
			}
			report, err := fetchCacheReport(cmd.Context(), container.Config.Server)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Entries: %d (%d fresh, ttl %s)\n", report.Cache.Entries, report.Cache.Fresh, report.Cache.TTL)
			fmt.Fprintf(out, "Connected browsers: %d\n", report.Browsers)
			for _, p := range report.Pending {
				fmt.Fprintf(out, "Pending warning: tab %d %s %s\n", p.TabID, colorVerdict(p.Verdict), p.URL)
			}
			for _, e := range report.Exemptions {
				fmt.Fprintf(out, "Allowed once:    tab %d %s\n", e.TabID, e.URL)
			}
			return nil
		},
	})
	return cacheCmd
}

func fetchCacheReport(ctx context.Context, server domain.ServerSettings) (cacheReport, error) {
	listen := server.Listen
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return cacheReport{}, err
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	ctx, cancel := context.WithTimeout(ctx, clientTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+net.JoinHostPort(host, port)+"/api/v1/cache", nil)
	if err != nil {
		return cacheReport{}, err
	}
	if server.APIKey != "" {
		req.Header.Set(domain.APIKeyHeader, server.APIKey)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return cacheReport{}, fmt.Errorf("server not reachable on %s: %w", listen, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return cacheReport{}, fmt.Errorf("server returned %s", resp.Status)
	}

	var report cacheReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return cacheReport{}, err
	}
	return report, nil
}
