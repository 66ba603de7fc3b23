package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"shred-sage/internal/database"
	"shred-sage/internal/exitcodes"
)

var (
	historyDB     string
	historyRecent int
	historyAction string
	historyPath   string
	historyRun    string
	historyStats  bool
	historyDays   int
	historyJSON   bool
	historyPrune  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query the erasure history",
	Example: `  shred-sage history --recent 10          # 10 most recent records
  shred-sage history --stats --days 7     # statistics for the last week
  shred-sage history --action ERROR       # only failures
  shred-sage history --path '/srv/spool/%' # records under a directory
  shred-sage history --run <run-id>       # everything from one run
  shred-sage history --prune 90           # drop records older than 90 days`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyDB, "db", "", "Path to erasure database (default from config)")
	f.IntVar(&historyRecent, "recent", 0, "Show N most recent records")
	f.StringVar(&historyAction, "action", "", "Filter by action (SHRED, DRY_RUN, SKIP, ERROR)")
	f.StringVar(&historyPath, "path", "", "Filter by path pattern (SQL LIKE syntax)")
	f.StringVar(&historyRun, "run", "", "Show records from one run")
	f.BoolVar(&historyStats, "stats", false, "Show erasure statistics")
	f.IntVar(&historyDays, "days", 30, "Number of days for statistics")
	f.BoolVar(&historyJSON, "json", false, "Output in JSON format")
	f.IntVar(&historyPrune, "prune", 0, "Delete records older than N days and compact the database")
}

func runHistory(cmd *cobra.Command, args []string) error {
	dbPath := historyDB
	if dbPath == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dbPath = cfg.DatabasePath
	}

	db, err := database.NewErasureDB(dbPath)
	if err != nil {
		return withCode(exitcodes.RuntimeError, fmt.Errorf("failed to open database %s: %w", dbPath, err))
	}
	defer db.Close()

	out := cmd.OutOrStdout()

	if historyPrune > 0 {
		n, err := db.DeleteOldRecords(historyPrune)
		if err != nil {
			return withCode(exitcodes.RuntimeError, fmt.Errorf("failed to prune history: %w", err))
		}
		if err := db.Vacuum(); err != nil {
			return withCode(exitcodes.RuntimeError, fmt.Errorf("failed to vacuum database: %w", err))
		}
		fmt.Fprintf(out, "pruned %d records older than %d days\n", n, historyPrune)
		return nil
	}

	if historyStats {
		stats, err := db.GetErasureStats(historyDays)
		if err != nil {
			return withCode(exitcodes.RuntimeError, fmt.Errorf("failed to get statistics: %w", err))
		}
		if historyJSON {
			return writeJSON(out, stats)
		}
		printStats(out, stats, historyDays)
		return nil
	}

	var records []database.ErasureRecord
	switch {
	case historyRecent > 0:
		records, err = db.GetRecentErasures(historyRecent)
	case historyAction != "":
		records, err = db.GetErasuresByAction(historyAction)
	case historyPath != "":
		records, err = db.GetErasuresByPath(historyPath)
	case historyRun != "":
		records, err = db.GetErasuresByRun(historyRun)
	default:
		return withCode(exitcodes.InvalidTarget, fmt.Errorf("one of --recent, --action, --path, --run, --stats or --prune is required"))
	}
	if err != nil {
		return withCode(exitcodes.RuntimeError, fmt.Errorf("failed to query history: %w", err))
	}

	if historyJSON {
		return writeJSON(out, records)
	}
	printRecords(out, records)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return withCode(exitcodes.RuntimeError, err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func printStats(w io.Writer, stats *database.ErasureStats, days int) {
	fmt.Fprintf(w, "Erasure Statistics (Last %d days)\n", days)
	fmt.Fprintf(w, "Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Shredded:      %d\n", stats.TotalShredded)
	fmt.Fprintf(w, "Dry runs:      %d\n", stats.TotalDryRun)
	fmt.Fprintf(w, "Skipped:       %d\n", stats.TotalSkipped)
	fmt.Fprintf(w, "Errors:        %d\n", stats.TotalErrors)
	fmt.Fprintf(w, "Bytes erased:  %s\n", formatBytes(stats.BytesErased))

	if len(stats.ByErrorKind) > 0 {
		fmt.Fprintln(w, "\nBy Error Kind:")
		kinds := make([]string, 0, len(stats.ByErrorKind))
		for k := range stats.ByErrorKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(w, "  %-15s %d\n", k, stats.ByErrorKind[k])
		}
	}
}

func printRecords(w io.Writer, records []database.ErasureRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tTimestamp\tAction\tObject\tSize\tPasses\tError\tPath")
	_, _ = fmt.Fprintln(tw, "--\t---------\t------\t------\t----\t------\t-----\t----")

	for _, r := range records {
		errKind := r.ErrorKind
		if errKind == "" {
			errKind = "-"
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.Timestamp.Format("2006-01-02 15:04:05"), r.Action, r.ObjectType,
			formatBytes(r.Size), r.Passes, errKind, r.Path)
	}
	_ = tw.Flush()
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
