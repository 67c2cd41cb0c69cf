package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kamir/recepbot/internal/timeline"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent pipeline outcomes",
	Run:   runRuns,
}

var (
	runsChat  string
	runsTrace string
	runsLimit int
	runsJSON  bool
)

func init() {
	runsCmd.Flags().StringVar(&runsChat, "chat", "", "Only runs for this chat JID")
	runsCmd.Flags().StringVar(&runsTrace, "trace", "", "Only runs with this trace id")
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Maximum runs to show")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "Print as JSON")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		fail("Config error: %v", err)
	}
	timeSvc, err := timeline.NewTimelineService(cfg.DBPath("timeline.db"))
	if err != nil {
		fail("Failed to open timeline: %v", err)
	}
	defer timeSvc.Close()

	runs, err := timeSvc.ListRuns(context.Background(), timeline.FilterArgs{
		ChatID:  runsChat,
		TraceID: runsTrace,
		Limit:   runsLimit,
	})
	if err != nil {
		fail("List runs: %v", err)
	}

	if runsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(runs)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTRACE\tCHAT\tSTAGE\tREPLY\tREQUEST\tTASK\tMS\tNOTE")
	for _, r := range runs {
		note := r.ErrorText
		if r.Skipped {
			note = r.SkipReason
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%t\t%t\t%d\t%s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			shortID(r.TraceID), r.ChatID, r.Stage,
			r.ReplySent, r.IsRequest, r.TaskFiled, r.DurationMs, note)
	}
	_ = w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
