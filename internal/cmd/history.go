package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/gitmcp/internal/config"
	"github.com/HendryAvila/gitmcp/internal/journal"
)

var (
	historyTool   string
	historyFailed bool
	historyLimit  int
	historyJSON   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent tool calls from the journal",
	Long: `Show recent tool calls recorded in the invocation journal, newest first.

The journal lives in the directory named by GITMCP_JOURNAL_DIR (default
~/.gitmcp). It records the tool name, outcome, error code, target and
duration of each call, never arguments such as commit messages or email
bodies.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyTool, "tool", "", "only show calls of this tool")
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "only show failed calls")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", journal.DefaultLimit, "maximum number of calls to show")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print entries as JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.Journal.Enabled {
		return fmt.Errorf("the journal is disabled; set %s=true to enable it", config.EnvJournal)
	}

	store, err := journal.New(journal.Config{Dir: cfg.Journal.Dir})
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	entries, err := store.Recent(ctx, journal.Filter{
		Tool:       historyTool,
		FailedOnly: historyFailed,
		Limit:      historyLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		if entries == nil {
			entries = []journal.Entry{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No tool calls recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tTOOL\tRESULT\tELAPSED\tTARGET")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%dms\t%s\n",
			e.ID,
			e.At.Local().Format("2006-01-02 15:04:05"),
			e.Tool,
			outcome(e),
			e.ElapsedMS,
			e.Target,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if stats, err := store.Stats(ctx); err == nil && stats.TotalCalls > 0 {
		fmt.Fprintf(out, "\n%d calls recorded, %d failed.\n", stats.TotalCalls, stats.Failures)
	}
	return nil
}

// outcome renders "ok" or the error code of a failed call.
func outcome(e journal.Entry) string {
	if e.OK {
		return "ok"
	}
	if e.Code == "" {
		return "failed"
	}
	return e.Code
}
