package events

import (
	"context"
	"testing"
	"time"
)

func TestEnvelopeRoundTripThroughChannel(t *testing.T) {
	consumer := NewChannelConsumer()
	pub := NewChannelPublisher("recepbot.pipeline", consumer)

	env, err := NewEnvelope(EnvelopeOutcome, "trace-1", "recepbot", OutcomePayload{
		ChatID:    "5511999990000@s.whatsapp.net",
		MessageID: "m1",
		Stage:     "filing-task",
		ReplySent: true,
		IsRequest: true,
		TaskFiled: true,
	})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	if err := pub.Publish(context.Background(), "5511999990000@s.whatsapp.net", env); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	_ = consumer.Close()

	var got []OutcomePayload
	var traces []string
	err = Tail(context.Background(), consumer, func(env *Envelope, out OutcomePayload) {
		traces = append(traces, env.TraceID)
		got = append(got, out)
	})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(got) != 1 || traces[0] != "trace-1" {
		t.Fatalf("expected one outcome, got %+v", got)
	}
	if !got[0].TaskFiled || got[0].Stage != "filing-task" || got[0].MessageID != "m1" {
		t.Fatalf("unexpected payload: %+v", got[0])
	}
}

func TestTailSkipsUndecodableMessages(t *testing.T) {
	consumer := NewChannelConsumer()
	consumer.ch <- ConsumerMessage{Topic: "t", Value: []byte("not json")}
	consumer.ch <- ConsumerMessage{Topic: "t", Value: []byte(`{"type":"heartbeat","payload":{}}`)}
	consumer.ch <- ConsumerMessage{Topic: "t", Value: []byte(`{"type":"outcome","payload":"oops"}`)}
	_ = consumer.Close()

	calls := 0
	if err := Tail(context.Background(), consumer, func(*Envelope, OutcomePayload) { calls++ }); err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no handler calls, got %d", calls)
	}
}

func TestTailStopsOnCancel(t *testing.T) {
	consumer := NewChannelConsumer()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Tail(ctx, consumer, func(*Envelope, OutcomePayload) {}) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Tail: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Tail did not stop after cancel")
	}
}

func TestOutcomeRejectsOtherTypes(t *testing.T) {
	env, err := NewEnvelope("heartbeat", "", "recepbot", struct{}{})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	if _, err := env.Outcome(); err == nil {
		t.Fatal("expected type mismatch error")
	}
}

func TestPublishAfterClose(t *testing.T) {
	pub := NewChannelPublisher("t", NewChannelConsumer())
	_ = pub.Close()
	env, _ := NewEnvelope(EnvelopeOutcome, "trace", "recepbot", OutcomePayload{})
	if err := pub.Publish(context.Background(), "k", env); err == nil {
		t.Fatal("expected error after close")
	}
}

func TestSplitBrokers(t *testing.T) {
	got := splitBrokers(" a:9092, ,b:9092 ")
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Fatalf("unexpected brokers: %v", got)
	}
}

func TestReadBackoffGrowsAndCaps(t *testing.T) {
	cases := map[int]time.Duration{
		1:  minReadBackoff,
		2:  2 * minReadBackoff,
		3:  4 * minReadBackoff,
		50: maxReadBackoff,
	}
	for failures, want := range cases {
		if got := readBackoff(failures); got != want {
			t.Errorf("readBackoff(%d) = %v, want %v", failures, got, want)
		}
	}
}

func TestKafkaPublisherDoesNotWaitOrRetry(t *testing.T) {
	p := NewKafkaPublisher("localhost:9092", "recepbot.outcomes")
	defer p.Close()
	if p.writer.BatchTimeout != publishBatchTimeout || p.writer.BatchTimeout > 50*time.Millisecond {
		t.Fatalf("unexpected batch timeout %v", p.writer.BatchTimeout)
	}
	if p.writer.MaxAttempts != 1 {
		t.Fatalf("expected a single write attempt, got %d", p.writer.MaxAttempts)
	}
}
