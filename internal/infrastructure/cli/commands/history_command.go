package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/doeshing/phishnet-go/internal/application/history"
	"github.com/doeshing/phishnet-go/internal/domain"
)

// NewHistoryCommand creates the history command with all subcommands
func NewHistoryCommand(provide ContainerProvider) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recent scan results",
	}

	historyCmd.AddCommand(
		newHistoryListCommand(provide),
		newHistoryStatsCommand(provide),
		newHistoryClearCommand(provide),
		newHistoryExportCommand(provide),
	)
	return historyCmd
}

func historyLog(cmd *cobra.Command, provide ContainerProvider) (*history.Log, error) {
	container, err := provide(cmd.Context())
	if err != nil {
		return nil, err
	}
	guard, err := container.RequireGuard()
	if err != nil {
		return nil, err
	}
	return guard.History(), nil
}

func newHistoryListCommand(provide ContainerProvider) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent scans, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := historyLog(cmd, provide)
			if err != nil {
				return err
			}
			listHistory(cmd.OutOrStdout(), log.Records(limit))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", DefaultHistoryLimit, "Max entries to show")
	return cmd
}

func listHistory(out io.Writer, records []domain.HistoryRecord) {
	if len(records) == 0 {
		fmt.Fprintln(out, msgNoHistory)
		return
	}
	for _, rec := range records {
		fmt.Fprintf(out, "%s | %-10s | %s\n",
			rec.Timestamp.Local().Format(TimestampFormat),
			colorVerdict(rec.Verdict),
			rec.URL)
		renderThreats(out, rec.Threats)
	}
}

func newHistoryStatsCommand(provide ContainerProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize verdicts and threat types",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := historyLog(cmd, provide)
			if err != nil {
				return err
			}
			showHistoryStats(cmd.OutOrStdout(), domain.SummarizeHistory(log.Records(0)))
			return nil
		},
	}
}

func showHistoryStats(out io.Writer, stats domain.HistoryStats) {
	if stats.Total == 0 {
		fmt.Fprintln(out, msgNoHistory)
		return
	}
	fmt.Fprintf(out, "Scans: %d\n", stats.Total)
	for _, v := range []domain.Verdict{domain.VerdictSafe, domain.VerdictSuspicious, domain.VerdictMalicious} {
		fmt.Fprintf(out, "  %s: %d\n", colorVerdict(v), stats.ByVerdict[v])
	}
	if len(stats.ThreatTops) == 0 {
		return
	}

	types := make([]string, 0, len(stats.ThreatTops))
	for t := range stats.ThreatTops {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if stats.ThreatTops[types[i]] != stats.ThreatTops[types[j]] {
			return stats.ThreatTops[types[i]] > stats.ThreatTops[types[j]]
		}
		return types[i] < types[j]
	})
	fmt.Fprintln(out, "Threat types:")
	for _, t := range types {
		fmt.Fprintf(out, "  %s: %d\n", t, stats.ThreatTops[t])
	}
}

func newHistoryClearCommand(provide ContainerProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the stored scan history",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := historyLog(cmd, provide)
			if err != nil {
				return err
			}
			if err := log.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		},
	}
}

func newHistoryExportCommand(provide ContainerProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "export <path>",
		Short: "Export history to a JSONL file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := historyLog(cmd, provide)
			if err != nil {
				return err
			}
			if err := exportHistory(args[0], log.Records(0)); err != nil {
				return fmt.Errorf("failed to export history to %s: %w", args[0], err)
			}
			return nil
		},
	}
}

func exportHistory(path string, records []domain.HistoryRecord) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, domain.SecureFilePermissions)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return w.Flush()
}
