package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kamir/recepbot/internal/agent"
	"github.com/kamir/recepbot/internal/bus"
	"github.com/kamir/recepbot/internal/channels"
	"github.com/kamir/recepbot/internal/config"
	"github.com/kamir/recepbot/internal/events"
	"github.com/kamir/recepbot/internal/timeline"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the receptionist on WhatsApp",
	Run:   runGateway,
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
}

func runGateway(cmd *cobra.Command, args []string) {
	printHeader("recepbot gateway")

	// 1. Load and check config
	cfg, err := loadConfig()
	if err != nil {
		fail("Config error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fail("Config error: %v", err)
	}
	if err := config.EnsureDir(cfg.Paths.DataDir); err != nil {
		fail("Data dir error: %v", err)
	}

	// 2. Timeline (transcripts + run log)
	timeSvc, err := timeline.NewTimelineService(cfg.DBPath("timeline.db"))
	if err != nil {
		fail("Failed to init timeline: %v", err)
	}
	defer timeSvc.Close()

	// 3. Bus and channel
	msgBus := bus.NewMessageBus()
	wa := channels.NewWhatsAppChannel(cfg, msgBus, timeSvc)

	// 4. Outcome sinks
	sinks := []agent.OutcomeSink{&runLogSink{timeline: timeSvc}}
	if cfg.Events.Enabled {
		pub := events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.Topic)
		defer pub.Close()
		hostname, _ := os.Hostname()
		sinks = append(sinks, &eventSink{pub: pub, sender: fmt.Sprintf("recepbot-%s", hostname)})
		fmt.Printf("Publishing outcomes to %s on %s\n", cfg.Events.Topic, cfg.Events.KafkaBrokers)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Dispatcher
	loop, err := buildLoop(ctx, cfg, msgBus, wa, sinks)
	if err != nil {
		fail("Setup error: %v", err)
	}
	if !cfg.TaskBoard.Enabled {
		fmt.Println("Task board disabled: requests are classified but not filed")
	}

	// 6. Run until signal or a bootstrap failure
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := wa.Start(gctx); err != nil {
			return fmt.Errorf("start whatsapp: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return loop.Run(gctx)
	})

	fmt.Println("Gateway running. Press Ctrl+C to stop.")
	runErr := g.Wait()

	slog.Info("Shutting down; waiting for in-flight events")
	loop.Wait()
	if err := wa.Stop(); err != nil {
		slog.Warn("WhatsApp stop failed", "error", err)
	}
	msgBus.Close()
	for {
		msg, err := msgBus.ConsumeInbound(context.Background())
		if err != nil {
			break
		}
		slog.Warn("Unprocessed message dropped at shutdown", "chat_id", msg.ChatID, "id", msg.ID)
	}

	if runErr != nil {
		fail("Gateway error: %v", runErr)
	}
	fmt.Println("Gateway stopped.")
}
