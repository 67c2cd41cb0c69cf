package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/kamir/recepbot/internal/agent"
	"github.com/kamir/recepbot/internal/bus"
	"github.com/kamir/recepbot/internal/channels"
	"github.com/spf13/cobra"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the pipeline once for a message typed on the command line",
	Run:   runAgent,
}

var (
	agentMessage string
	agentSender  string
	agentNoTasks bool
)

func init() {
	agentCmd.Flags().StringVarP(&agentMessage, "message", "m", "", "Message to process")
	agentCmd.Flags().StringVar(&agentSender, "from", "Console", "Contact name of the sender")
	agentCmd.Flags().BoolVar(&agentNoTasks, "no-tasks", false, "Classify but do not file task board cards")
	_ = agentCmd.MarkFlagRequired("message")
	rootCmd.AddCommand(agentCmd)
}

func runAgent(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		fail("Config error: %v", err)
	}
	if agentNoTasks {
		cfg.TaskBoard.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		fail("Config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	console := channels.NewConsoleChannel(os.Stdout, cfg.Persona.Name)
	loop, err := buildLoop(ctx, cfg, nil, console, nil)
	if err != nil {
		fail("Setup error: %v", err)
	}

	const chatID = "console"
	id := console.Record(chatID, agentSender, agentMessage)
	out := loop.Handle(ctx, &bus.InboundMessage{
		ID:         id,
		Channel:    console.Name(),
		ChatID:     chatID,
		SenderID:   chatID,
		SenderName: agentSender,
		Content:    agentMessage,
		Type:       bus.MessageTypeChat,
	})
	printOutcome(out)
	if out.Err() != nil {
		os.Exit(1)
	}
}

func printOutcome(out agent.Outcome) {
	dim := color.New(color.Faint)
	dim.Printf("\ntrace=%s stage=%s duration=%s\n", out.TraceID, out.LastStage(), out.Duration.Round(time.Millisecond))
	switch {
	case out.Reply.Skipped:
		color.Yellow("skipped: %s", out.Reply.SkipReason)
	case out.Task.Filed:
		color.Green("request: task filed")
	case out.Task.IsRequest:
		color.Green("request: not filed")
	case out.Task.Ran:
		fmt.Println("not a request")
	}
	if err := out.Err(); err != nil {
		color.Red("error: %v", err)
	}
}
