package agent

import "strings"

// SenderKind is the transport's own statement of who wrote a transcript entry.
type SenderKind int

const (
	// SenderUnknown means the transport gave no sender metadata; roles fall back to name matching.
	SenderUnknown SenderKind = iota
	SenderSelf
	SenderContact
)

// TranscriptEntry is one stored chat message as returned by the transport.
type TranscriptEntry struct {
	ID         string
	SenderName string
	Body       string
	Kind       SenderKind
}

// DedupeTranscript drops entries with an empty or repeated ID and entries whose
// body is blank after trimming. First occurrences keep their relative order.
func DedupeTranscript(entries []TranscriptEntry) []TranscriptEntry {
	out := make([]TranscriptEntry, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		if _, dup := seen[e.ID]; dup {
			continue
		}
		if strings.TrimSpace(e.Body) == "" {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}
