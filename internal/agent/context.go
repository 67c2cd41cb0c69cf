package agent

import "strings"

// Role tags a conversation turn for the generation backend.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one role-tagged utterance of reconstructed context.
type ConversationTurn struct {
	Role Role
	Text string
}

// BuildHistory turns a cleaned transcript into context turns. The last entry is
// the live message and is left out. Entries with a known sender kind keep it;
// unknown ones are the assistant's when SenderName equals selfName.
func BuildHistory(entries []TranscriptEntry, selfName string) []ConversationTurn {
	if len(entries) <= 1 {
		return []ConversationTurn{}
	}
	self := strings.TrimSpace(selfName)

	turns := make([]ConversationTurn, 0, len(entries)-1)
	for _, e := range entries[:len(entries)-1] {
		turns = append(turns, ConversationTurn{
			Role: roleOf(e, self),
			Text: e.Body,
		})
	}
	return turns
}

func roleOf(e TranscriptEntry, self string) Role {
	switch e.Kind {
	case SenderSelf:
		return RoleAssistant
	case SenderContact:
		return RoleUser
	}
	if self != "" && e.SenderName == self {
		return RoleAssistant
	}
	return RoleUser
}

// ContextBuilder reconstructs conversation context from a raw transcript.
type ContextBuilder struct {
	selfName func() string
}

// NewContextBuilder creates a builder. selfName is consulted on every call
// because the transport only learns its own display name after login.
func NewContextBuilder(selfName func() string) *ContextBuilder {
	if selfName == nil {
		selfName = func() string { return "" }
	}
	return &ContextBuilder{selfName: selfName}
}

// History dedupes raw and builds the context turns for the live message.
func (b *ContextBuilder) History(raw []TranscriptEntry) []ConversationTurn {
	return BuildHistory(DedupeTranscript(raw), b.selfName())
}

// HistoryFor is History with the live message identified by liveID. That entry
// is the one left out wherever it sits in the transcript. Without a match the
// last entry is left out.
func (b *ContextBuilder) HistoryFor(raw []TranscriptEntry, liveID string) []ConversationTurn {
	return BuildHistory(moveLast(DedupeTranscript(raw), liveID), b.selfName())
}

// moveLast returns entries with the entry whose ID is liveID moved to the end.
func moveLast(entries []TranscriptEntry, liveID string) []TranscriptEntry {
	if liveID == "" {
		return entries
	}
	idx := -1
	for i, e := range entries {
		if e.ID == liveID {
			idx = i
			break
		}
	}
	if idx < 0 || idx == len(entries)-1 {
		return entries
	}
	out := make([]TranscriptEntry, 0, len(entries))
	out = append(out, entries[:idx]...)
	out = append(out, entries[idx+1:]...)
	return append(out, entries[idx])
}
