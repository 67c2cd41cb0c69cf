// Package agent implements the message-processing pipeline.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kamir/recepbot/internal/bus"
)

// Stage names the dispatcher states an event passes through.
type Stage string

const (
	StageIdle            Stage = "idle"
	StageFiltering       Stage = "filtering"
	StageBuildingContext Stage = "building-context"
	StageGeneratingReply Stage = "generating-reply"
	StageReplying        Stage = "replying"
	StageClassifying     Stage = "classifying"
	StageFilingTask      Stage = "filing-task"
)

const (
	defaultContactName = "Contato"
	skipGroupMessage   = "group message"
	skipNotChat        = "not a direct chat message"
	skipEmptyBody      = "empty body"
)

// Transport is the session layer the dispatcher reads from and replies through.
type Transport interface {
	FetchTranscript(ctx context.Context, chatID string) ([]TranscriptEntry, error)
	Send(ctx context.Context, chatID, text string) error
	SelfName() string
}

// IntentClassifier decides whether a message is an actionable request.
type IntentClassifier interface {
	IsRequest(ctx context.Context, text string) (bool, error)
}

// ReplyGenerator produces the conversational reply.
type ReplyGenerator interface {
	Reply(ctx context.Context, contact, text string, history []ConversationTurn) (string, error)
}

// OutcomeSink receives every finished Outcome. Errors are logged and ignored.
type OutcomeSink interface {
	RecordOutcome(ctx context.Context, out Outcome) error
}

// ReplyResult is the typed result of the reply phase.
type ReplyResult struct {
	Stage      Stage // last stage entered
	Skipped    bool
	SkipReason string
	Reply      string // generated text, without any display prefix
	Sent       bool
	Err        error
}

// TaskResult is the typed result of the task phase. Ran is false when the reply phase did not send.
type TaskResult struct {
	Ran         bool
	Stage       Stage
	IsRequest   bool
	ClassifyErr error
	Filed       bool
	FileErr     error
}

// Outcome is everything one inbound event produced.
type Outcome struct {
	TraceID   string
	ChatID    string
	MessageID string
	Reply     ReplyResult
	Task      TaskResult
	Duration  time.Duration
}

// LastStage is the furthest stage the event reached.
func (o Outcome) LastStage() Stage {
	if o.Task.Ran {
		return o.Task.Stage
	}
	return o.Reply.Stage
}

// Err joins the phase errors. Skips and negative classifications are not errors.
func (o Outcome) Err() error {
	return errors.Join(o.Reply.Err, o.Task.ClassifyErr, o.Task.FileErr)
}

// LoopOptions contains configuration for the dispatcher.
type LoopOptions struct {
	Bus        *bus.MessageBus
	Transport  Transport
	Classifier IntentClassifier
	Responder  ReplyGenerator
	// Filer may be nil; requests are then classified but not filed.
	Filer TaskFiler
	Sinks []OutcomeSink
	// SelfName overrides Transport.SelfName for role inference.
	SelfName    string
	PersonaName string
	// UseHistory selects the history-aware variant.
	UseHistory bool
	// ReplyPrefix is prepended to replies in the basic variant only.
	ReplyPrefix string
}

// Loop is the message dispatcher. It holds no per-event state, so Handle may run concurrently.
type Loop struct {
	bus            *bus.MessageBus
	transport      Transport
	classifier     IntentClassifier
	responder      ReplyGenerator
	filer          TaskFiler
	sinks          []OutcomeSink
	contextBuilder *ContextBuilder
	personaName    string
	useHistory     bool
	replyPrefix    string
	inflight       sync.WaitGroup
}

// NewLoop creates a new dispatcher.
func NewLoop(opts LoopOptions) *Loop {
	selfName := func() string {
		if opts.SelfName != "" {
			return opts.SelfName
		}
		if opts.Transport == nil {
			return ""
		}
		return opts.Transport.SelfName()
	}
	persona := opts.PersonaName
	if persona == "" {
		persona = "Gemini"
	}

	return &Loop{
		bus:            opts.Bus,
		transport:      opts.Transport,
		classifier:     opts.Classifier,
		responder:      opts.Responder,
		filer:          opts.Filer,
		sinks:          opts.Sinks,
		contextBuilder: NewContextBuilder(selfName),
		personaName:    persona,
		useHistory:     opts.UseHistory,
		replyPrefix:    opts.ReplyPrefix,
	}
}

// Run consumes the bus and handles each event on its own goroutine until ctx
// is cancelled or the bus is closed. Started events are not cancelled with ctx;
// call Wait to let them finish.
func (l *Loop) Run(ctx context.Context) error {
	slog.Info("Dispatcher started", "history", l.useHistory)

	for {
		msg, err := l.bus.ConsumeInbound(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, bus.ErrClosed) {
				return nil
			}
			slog.Error("Failed to consume message", "error", err)
			continue
		}

		eventCtx := context.WithoutCancel(ctx)
		l.inflight.Add(1)
		go func() {
			defer l.inflight.Done()
			l.Handle(eventCtx, msg)
		}()
	}
}

// Wait blocks until every event started by Run has finished.
func (l *Loop) Wait() {
	l.inflight.Wait()
}

// Handle runs the two-phase pipeline for one inbound event: reply, then task.
// The task phase only runs after the reply was sent.
func (l *Loop) Handle(ctx context.Context, msg *bus.InboundMessage) Outcome {
	start := time.Now()
	traceID := msg.TraceID
	if traceID == "" {
		traceID = uuid.NewString()
	}
	log := slog.With("trace_id", traceID, "chat_id", msg.ChatID, "message_id", msg.ID)

	out := Outcome{TraceID: traceID, ChatID: msg.ChatID, MessageID: msg.ID}
	out.Reply = l.replyPhase(ctx, msg, log)
	if out.Reply.Sent {
		out.Task = l.taskPhase(ctx, msg, out.Reply.Reply, log)
	}
	out.Duration = time.Since(start)

	log.Debug("event done", "stage", out.LastStage(), "duration", out.Duration)
	l.emit(ctx, out, log)
	return out
}

func (l *Loop) replyPhase(ctx context.Context, msg *bus.InboundMessage, log *slog.Logger) ReplyResult {
	res := ReplyResult{Stage: StageFiltering}
	if reason := l.filter(msg); reason != "" {
		res.Skipped = true
		res.SkipReason = reason
		log.Debug("message skipped", "stage", res.Stage, "reason", reason)
		return res
	}

	contact := contactName(msg)

	var history []ConversationTurn
	if l.useHistory {
		res.Stage = StageBuildingContext
		history = l.buildContext(ctx, msg, log)
	}

	res.Stage = StageGeneratingReply
	reply, err := l.responder.Reply(ctx, contact, msg.Content, history)
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", res.Stage, err)
		log.Error("Reply generation failed; event dropped", "stage", res.Stage, "error", err)
		return res
	}
	res.Reply = reply

	res.Stage = StageReplying
	text := reply
	if !l.useHistory && l.replyPrefix != "" {
		text = l.replyPrefix + reply
	}
	if err := l.transport.Send(ctx, msg.ChatID, text); err != nil {
		res.Err = fmt.Errorf("%s: %w", res.Stage, err)
		log.Error("Reply send failed; event dropped", "stage", res.Stage, "error", err)
		return res
	}
	res.Sent = true
	log.Info("Reply sent", "stage", res.Stage, "contact", contact)
	return res
}

func (l *Loop) taskPhase(ctx context.Context, msg *bus.InboundMessage, reply string, log *slog.Logger) TaskResult {
	res := TaskResult{Ran: true, Stage: StageClassifying}

	isRequest, err := l.classifier.IsRequest(ctx, msg.Content)
	if err != nil {
		res.ClassifyErr = err
		log.Warn("Classification failed; treating as not a request", "stage", res.Stage, "error", err)
		isRequest = false
	}
	res.IsRequest = isRequest
	if !isRequest {
		log.Info("Message is not a request", "stage", res.Stage)
		return res
	}
	if l.filer == nil {
		log.Info("Request detected; task board disabled", "stage", res.Stage)
		return res
	}

	res.Stage = StageFilingTask
	rec := NewTaskRecord(contactName(msg), msg.Content, reply, l.personaName)
	if err := l.filer.CreateTask(ctx, rec); err != nil {
		res.FileErr = fmt.Errorf("%s: %w", res.Stage, err)
		log.Error("Task filing failed", "stage", res.Stage, "error", err)
		return res
	}
	res.Filed = true
	log.Info("Task filed", "stage", res.Stage, "title", rec.Title)
	return res
}

// filter returns a skip reason, or "" when the message should be processed.
func (l *Loop) filter(msg *bus.InboundMessage) string {
	switch {
	case msg.IsGroup:
		return skipGroupMessage
	case l.useHistory && msg.Type != bus.MessageTypeChat:
		return skipNotChat
	case strings.TrimSpace(msg.Content) == "":
		return skipEmptyBody
	}
	return ""
}

// buildContext never fails the event: without a transcript the reply is generated without history.
func (l *Loop) buildContext(ctx context.Context, msg *bus.InboundMessage, log *slog.Logger) []ConversationTurn {
	raw, err := l.transport.FetchTranscript(ctx, msg.ChatID)
	if err != nil {
		log.Warn("Transcript fetch failed; replying without history", "stage", StageBuildingContext, "error", err)
		return nil
	}
	history := l.contextBuilder.HistoryFor(raw, msg.ID)
	log.Debug("context built", "stage", StageBuildingContext, "entries", len(raw), "turns", len(history))
	return history
}

func (l *Loop) emit(ctx context.Context, out Outcome, log *slog.Logger) {
	for _, sink := range l.sinks {
		if err := sink.RecordOutcome(ctx, out); err != nil {
			log.Warn("Outcome sink failed", "error", err)
		}
	}
}

func contactName(msg *bus.InboundMessage) string {
	if name := strings.TrimSpace(msg.SenderName); name != "" {
		return name
	}
	return defaultContactName
}
