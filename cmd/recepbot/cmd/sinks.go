package cmd

import (
	"context"

	"github.com/kamir/recepbot/internal/agent"
	"github.com/kamir/recepbot/internal/events"
	"github.com/kamir/recepbot/internal/timeline"
)

// runLogSink adapts the timeline run log to agent.OutcomeSink.
type runLogSink struct {
	timeline *timeline.TimelineService
}

func (s *runLogSink) RecordOutcome(ctx context.Context, out agent.Outcome) error {
	return s.timeline.RecordRun(ctx, pipelineRun(out))
}

// eventSink adapts an events.Publisher to agent.OutcomeSink. Outcomes are keyed by chat.
type eventSink struct {
	pub    events.Publisher
	sender string
}

func (s *eventSink) RecordOutcome(ctx context.Context, out agent.Outcome) error {
	env, err := events.NewEnvelope(events.EnvelopeOutcome, out.TraceID, s.sender, outcomePayload(out))
	if err != nil {
		return err
	}
	return s.pub.Publish(ctx, out.ChatID, env)
}

func pipelineRun(out agent.Outcome) *timeline.PipelineRun {
	p := outcomePayload(out)
	return &timeline.PipelineRun{
		TraceID:    out.TraceID,
		ChatID:     p.ChatID,
		MessageID:  p.MessageID,
		Stage:      p.Stage,
		Skipped:    p.Skipped,
		SkipReason: p.SkipReason,
		ReplySent:  p.ReplySent,
		IsRequest:  p.IsRequest,
		TaskFiled:  p.TaskFiled,
		ErrorText:  p.Error,
		DurationMs: p.DurationMs,
	}
}

func outcomePayload(out agent.Outcome) events.OutcomePayload {
	p := events.OutcomePayload{
		ChatID:     out.ChatID,
		MessageID:  out.MessageID,
		Stage:      string(out.LastStage()),
		Skipped:    out.Reply.Skipped,
		SkipReason: out.Reply.SkipReason,
		ReplySent:  out.Reply.Sent,
		IsRequest:  out.Task.IsRequest,
		TaskFiled:  out.Task.Filed,
		DurationMs: out.Duration.Milliseconds(),
	}
	if err := out.Err(); err != nil {
		p.Error = err.Error()
	}
	return p
}
