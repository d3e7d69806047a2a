package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"ksapi/internal/history"
)

var (
	historyLimit   int
	historyJSON    bool
	historySummary bool
	historyPrune   time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent assembly jobs",
	Example: `  ksapi history --limit 50
  ksapi history --summary
  ksapi history --prune 720h`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of jobs to show")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print JSON")
	historyCmd.Flags().BoolVar(&historySummary, "summary", false, "Print job counts per status")
	historyCmd.Flags().DurationVar(&historyPrune, "prune", 0, "Delete jobs older than this age")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if !cfg.History.Enabled {
		return errors.New("job history is disabled in the config")
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if historyPrune > 0 {
		n, err := store.Prune(ctx, time.Now().Add(-historyPrune))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Pruned %d jobs older than %s\n", n, historyPrune)
		return nil
	}

	if historySummary {
		counts, err := store.Counts(ctx)
		if err != nil {
			return err
		}
		if historyJSON {
			return json.NewEncoder(out).Encode(counts)
		}
		statuses := make([]string, 0, len(counts))
		for s := range counts {
			statuses = append(statuses, string(s))
		}
		sort.Strings(statuses)
		for _, s := range statuses {
			fmt.Fprintf(out, "%-8s %d\n", s, counts[history.Status(s)])
		}
		return nil
	}

	entries, err := store.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	if historyJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No jobs recorded.")
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("WHEN", "ID", "TARGET", "LINES", "FAILED", "MS", "STATUS").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, e := range entries {
		t.Row(
			e.CreatedAt.Local().Format(time.DateTime),
			e.ID,
			e.Arch+"/"+e.Mode+"/"+e.Endian,
			strconv.Itoa(e.Lines),
			strconv.Itoa(e.Failed),
			strconv.FormatInt(e.DurationMs, 10),
			string(e.Status),
		)
	}
	_, err = fmt.Fprintln(out, t.Render())
	return err
}
