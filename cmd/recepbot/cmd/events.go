package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/kamir/recepbot/internal/events"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Work with the Kafka outcome stream",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow pipeline outcomes published by gateways",
	Run:   runEventsTail,
}

func init() {
	eventsCmd.AddCommand(eventsTailCmd)
	rootCmd.AddCommand(eventsCmd)
}

func runEventsTail(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		fail("Config error: %v", err)
	}
	if cfg.Events.KafkaBrokers == "" {
		fail("Config error: KAFKA_BROKERS is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := events.NewKafkaConsumer(cfg.Events.KafkaBrokers, cfg.Events.ConsumerGroup, cfg.Events.Topic)
	defer consumer.Close()

	printHeader(fmt.Sprintf("Tailing %s", cfg.Events.Topic))
	err = events.Tail(ctx, consumer, func(env *events.Envelope, out events.OutcomePayload) {
		line := fmt.Sprintf("%s %s %s stage=%s reply=%t request=%t task=%t %dms",
			env.Timestamp.Local().Format("15:04:05"), shortID(env.TraceID), out.ChatID,
			out.Stage, out.ReplySent, out.IsRequest, out.TaskFiled, out.DurationMs)
		switch {
		case out.Error != "":
			color.Red("%s error=%s", line, out.Error)
		case out.TaskFiled:
			color.Green("%s", line)
		default:
			fmt.Println(line)
		}
	})
	if err != nil {
		fail("Tail error: %v", err)
	}
}
