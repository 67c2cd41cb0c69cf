package agent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/kamir/recepbot/internal/provider"
)

var errBackend = errors.New("backend unavailable")

// fakeProvider answers by system instruction so one instance can serve both the
// classifier and the responder.
type fakeProvider struct {
	mu       sync.Mutex
	requests []provider.ChatRequest
	answers  map[string]string
	errs     map[string]error
	calls    int32
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{answers: map[string]string{}, errs: map[string]error{}}
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	atomic.AddInt32(&p.calls, 1)
	p.mu.Lock()
	p.requests = append(p.requests, *req)
	p.mu.Unlock()
	if err := p.errs[req.System]; err != nil {
		return nil, err
	}
	return &provider.ChatResponse{Content: p.answers[req.System]}, nil
}

func (p *fakeProvider) callCount() int { return int(atomic.LoadInt32(&p.calls)) }

func (p *fakeProvider) lastRequest() provider.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[len(p.requests)-1]
}

type sentMessage struct {
	ChatID string
	Text   string
}

type fakeTransport struct {
	mu         sync.Mutex
	transcript []TranscriptEntry
	fetchErr   error
	sendErr    error
	selfName   string
	sent       []sentMessage
	fetches    int32
}

func (t *fakeTransport) FetchTranscript(ctx context.Context, chatID string) ([]TranscriptEntry, error) {
	atomic.AddInt32(&t.fetches, 1)
	if t.fetchErr != nil {
		return nil, t.fetchErr
	}
	return t.transcript, nil
}

func (t *fakeTransport) Send(ctx context.Context, chatID, text string) error {
	if t.sendErr != nil {
		return t.sendErr
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (t *fakeTransport) SelfName() string { return t.selfName }

func (t *fakeTransport) sentMessages() []sentMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]sentMessage(nil), t.sent...)
}

type fakeFiler struct {
	mu      sync.Mutex
	records []TaskRecord
	err     error
}

func (f *fakeFiler) CreateTask(ctx context.Context, rec TaskRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return f.err
}

func (f *fakeFiler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type recordingSink struct {
	mu       sync.Mutex
	outcomes []Outcome
	err      error
}

func (s *recordingSink) RecordOutcome(ctx context.Context, out Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, out)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outcomes)
}
