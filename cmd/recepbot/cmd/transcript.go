package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/kamir/recepbot/internal/agent"
	"github.com/kamir/recepbot/internal/channels"
	"github.com/kamir/recepbot/internal/timeline"
	"github.com/spf13/cobra"
)

var transcriptCmd = &cobra.Command{
	Use:   "transcript <chat-jid>",
	Short: "Show the stored transcript of a chat and the context built from it",
	Args:  cobra.ExactArgs(1),
	Run:   runTranscript,
}

var transcriptLimit int

func init() {
	transcriptCmd.Flags().IntVarP(&transcriptLimit, "limit", "n", -1, "Messages to read (default: pipeline.transcriptLimit, 0 = all)")
	rootCmd.AddCommand(transcriptCmd)
}

func runTranscript(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		fail("Config error: %v", err)
	}
	if transcriptLimit >= 0 {
		cfg.Pipeline.TranscriptLimit = transcriptLimit
	}

	timeSvc, err := timeline.NewTimelineService(cfg.DBPath("timeline.db"))
	if err != nil {
		fail("Failed to open timeline: %v", err)
	}
	defer timeSvc.Close()

	// The channel is not started; it only reads the timeline here.
	wa := channels.NewWhatsAppChannel(cfg, nil, timeSvc)
	raw, err := wa.FetchTranscript(context.Background(), args[0])
	if err != nil {
		fail("Transcript error: %v", err)
	}
	clean := agent.DedupeTranscript(raw)

	printHeader(fmt.Sprintf("Transcript %s", args[0]))
	fmt.Printf("%d stored, %d after dedupe, self name %q\n\n", len(raw), len(clean), wa.SelfName())

	assistant := color.New(color.FgCyan)
	for _, e := range clean {
		if e.Kind == agent.SenderSelf {
			assistant.Printf("[assistant] %s: %s\n", e.SenderName, e.Body)
			continue
		}
		fmt.Printf("[user]      %s: %s\n", e.SenderName, e.Body)
	}

	history := agent.NewContextBuilder(wa.SelfName).History(raw)
	fmt.Printf("\nContext for the latest message: %d turns\n", len(history))
}
