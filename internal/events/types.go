// Package events streams pipeline outcomes over Kafka.
package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is the wire format for every message on the outcome topic.
type Envelope struct {
	Type      string          `json:"type"`
	TraceID   string          `json:"trace_id"`
	SenderID  string          `json:"sender_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Envelope type constants.
const (
	EnvelopeOutcome = "outcome"
)

// OutcomePayload summarises one dispatched event.
type OutcomePayload struct {
	ChatID     string `json:"chat_id"`
	MessageID  string `json:"message_id"`
	Stage      string `json:"stage"` // last stage reached
	Skipped    bool   `json:"skipped"`
	SkipReason string `json:"skip_reason,omitempty"`
	ReplySent  bool   `json:"reply_sent"`
	IsRequest  bool   `json:"is_request"`
	TaskFiled  bool   `json:"task_filed"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// NewEnvelope wraps payload for the wire.
func NewEnvelope(typ, traceID, senderID string, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return &Envelope{
		Type:      typ,
		TraceID:   traceID,
		SenderID:  senderID,
		Timestamp: time.Now().UTC(),
		Payload:   data,
	}, nil
}

// Outcome decodes the payload of an outcome envelope.
func (e *Envelope) Outcome() (OutcomePayload, error) {
	var p OutcomePayload
	if e.Type != EnvelopeOutcome {
		return p, fmt.Errorf("envelope type %q is not %q", e.Type, EnvelopeOutcome)
	}
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return p, fmt.Errorf("decode outcome: %w", err)
	}
	return p, nil
}
