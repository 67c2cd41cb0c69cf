package cmd

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/kamir/recepbot/internal/agent"
	"github.com/kamir/recepbot/internal/config"
	"github.com/kamir/recepbot/internal/events"
	"github.com/kamir/recepbot/internal/timeline"
)

func filedOutcome() agent.Outcome {
	return agent.Outcome{
		TraceID:   "trace-1",
		ChatID:    "5511999990000@s.whatsapp.net",
		MessageID: "m1",
		Reply:     agent.ReplyResult{Stage: agent.StageReplying, Reply: "Olá!", Sent: true},
		Task:      agent.TaskResult{Ran: true, Stage: agent.StageFilingTask, IsRequest: true, Filed: true},
		Duration:  1500 * time.Millisecond,
	}
}

func TestOutcomePayload(t *testing.T) {
	p := outcomePayload(filedOutcome())
	if p.Stage != string(agent.StageFilingTask) || !p.ReplySent || !p.IsRequest || !p.TaskFiled {
		t.Fatalf("unexpected payload: %+v", p)
	}
	if p.DurationMs != 1500 || p.Error != "" {
		t.Fatalf("unexpected payload: %+v", p)
	}

	failed := agent.Outcome{
		TraceID: "trace-2",
		Reply:   agent.ReplyResult{Stage: agent.StageGeneratingReply, Err: errors.New("quota")},
	}
	p = outcomePayload(failed)
	if p.Stage != string(agent.StageGeneratingReply) || p.Error != "quota" || p.ReplySent {
		t.Fatalf("unexpected failure payload: %+v", p)
	}
}

func TestRunLogSinkStoresOutcome(t *testing.T) {
	timeSvc, err := timeline.NewTimelineService(filepath.Join(t.TempDir(), "timeline.db"))
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	defer timeSvc.Close()

	sink := &runLogSink{timeline: timeSvc}
	if err := sink.RecordOutcome(context.Background(), filedOutcome()); err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}

	runs, err := timeSvc.ListRuns(context.Background(), timeline.FilterArgs{TraceID: "trace-1"})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || !runs[0].TaskFiled || runs[0].Stage != "filing-task" || runs[0].DurationMs != 1500 {
		t.Fatalf("unexpected runs: %+v", runs)
	}
}

func TestEventSinkPublishesOutcome(t *testing.T) {
	consumer := events.NewChannelConsumer()
	sink := &eventSink{pub: events.NewChannelPublisher("recepbot.pipeline", consumer), sender: "recepbot-test"}

	if err := sink.RecordOutcome(context.Background(), filedOutcome()); err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}
	_ = consumer.Close()

	var got []events.OutcomePayload
	var sender string
	err := events.Tail(context.Background(), consumer, func(env *events.Envelope, out events.OutcomePayload) {
		sender = env.SenderID
		got = append(got, out)
	})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(got) != 1 || !got[0].TaskFiled || sender != "recepbot-test" {
		t.Fatalf("unexpected outcomes: %+v (sender %q)", got, sender)
	}
}

func TestPersonaTurns(t *testing.T) {
	turns := personaTurns(config.DefaultPersonaExamples())
	if len(turns) != 2*len(config.DefaultPersonaExamples()) {
		t.Fatalf("unexpected turn count %d", len(turns))
	}
	for i, turn := range turns {
		want := agent.RoleUser
		if i%2 == 1 {
			want = agent.RoleAssistant
		}
		if turn.Role != want {
			t.Fatalf("turn %d role %s, want %s", i, turn.Role, want)
		}
	}
}

func TestGenerationConfig(t *testing.T) {
	m := config.DefaultConfig().Model
	gc := generationConfig(m, m.ClassifierMaxTokens)
	if gc.MaxTokens != 1024 || gc.TopK != 64 || gc.TopP != 0.95 || gc.Temperature != 1 || gc.ResponseMIMEType != "text/plain" {
		t.Fatalf("unexpected generation config: %+v", gc)
	}
}

func TestNewTaskFiler(t *testing.T) {
	filer, err := newTaskFiler(config.TaskBoardConfig{Enabled: false})
	if err != nil || filer != nil {
		t.Fatalf("disabled board: got %v, %v", filer, err)
	}

	if _, err := newTaskFiler(config.TaskBoardConfig{Enabled: true}); err == nil {
		t.Fatal("expected error for missing credentials")
	}

	filer, err = newTaskFiler(config.TaskBoardConfig{Enabled: true, Key: "k", Token: "t", ListID: "l"})
	if err != nil || filer == nil {
		t.Fatalf("enabled board: got %v, %v", filer, err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789"); got != "01234567" {
		t.Fatalf("shortID: %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Fatalf("shortID: %q", got)
	}
}
