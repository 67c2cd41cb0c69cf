package channels

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/kamir/recepbot/internal/agent"
)

// ConsoleChannel is a local transport for trying the pipeline from a terminal.
// Replies are written to out and transcripts are kept in memory.
type ConsoleChannel struct {
	out      io.Writer
	selfName string

	mu          sync.Mutex
	transcripts map[string][]agent.TranscriptEntry
	seq         int
}

// NewConsoleChannel creates a console transport writing replies to out.
func NewConsoleChannel(out io.Writer, selfName string) *ConsoleChannel {
	return &ConsoleChannel{
		out:         out,
		selfName:    selfName,
		transcripts: make(map[string][]agent.TranscriptEntry),
	}
}

func (c *ConsoleChannel) Name() string { return "console" }

// Record appends a contact message to chatID's transcript and returns its id.
func (c *ConsoleChannel) Record(chatID, sender, body string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID()
	c.transcripts[chatID] = append(c.transcripts[chatID], agent.TranscriptEntry{
		ID:         id,
		SenderName: sender,
		Body:       body,
		Kind:       agent.SenderContact,
	})
	return id
}

func (c *ConsoleChannel) FetchTranscript(ctx context.Context, chatID string) ([]agent.TranscriptEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]agent.TranscriptEntry(nil), c.transcripts[chatID]...), nil
}

func (c *ConsoleChannel) Send(ctx context.Context, chatID, text string) error {
	if _, err := fmt.Fprintln(c.out, text); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcripts[chatID] = append(c.transcripts[chatID], agent.TranscriptEntry{
		ID:         c.nextID(),
		SenderName: c.selfName,
		Body:       text,
		Kind:       agent.SenderSelf,
	})
	return nil
}

func (c *ConsoleChannel) SelfName() string { return c.selfName }

func (c *ConsoleChannel) nextID() string {
	c.seq++
	return fmt.Sprintf("console-%d", c.seq)
}
