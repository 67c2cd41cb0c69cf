package timeline

import (
	"time"
)

// Schema is applied on every open; statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id TEXT NOT NULL,
	chat_id TEXT NOT NULL,
	sender_id TEXT,
	sender_name TEXT,
	from_me BOOLEAN NOT NULL DEFAULT 0,
	body TEXT,
	msg_type TEXT NOT NULL DEFAULT 'chat',
	source TEXT NOT NULL DEFAULT 'live',
	timestamp DATETIME NOT NULL,
	recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_messages_chat_ts ON messages(chat_id, timestamp);

CREATE TABLE IF NOT EXISTS pipeline_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	trace_id TEXT NOT NULL,
	chat_id TEXT NOT NULL,
	message_id TEXT,
	stage TEXT NOT NULL,
	skipped BOOLEAN NOT NULL DEFAULT 0,
	skip_reason TEXT,
	reply_sent BOOLEAN NOT NULL DEFAULT 0,
	is_request BOOLEAN NOT NULL DEFAULT 0,
	task_filed BOOLEAN NOT NULL DEFAULT 0,
	error_text TEXT,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_trace ON pipeline_runs(trace_id);
CREATE INDEX IF NOT EXISTS idx_runs_chat ON pipeline_runs(chat_id);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT
);
`

// Message sources.
const (
	SourceLive        = "live"
	SourceHistorySync = "history_sync"
	SourceOutbound    = "outbound"
)

// Message is one stored chat message. Duplicates are allowed; readers dedupe.
type Message struct {
	ID         int64     `json:"id"`
	MessageID  string    `json:"message_id"` // WhatsApp message id
	ChatID     string    `json:"chat_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	FromMe     bool      `json:"from_me"`
	Body       string    `json:"body"`
	MsgType    string    `json:"msg_type"`
	Source     string    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
}

// PipelineRun is the stored summary of one dispatcher event.
type PipelineRun struct {
	ID         int64     `json:"id"`
	TraceID    string    `json:"trace_id"`
	ChatID     string    `json:"chat_id"`
	MessageID  string    `json:"message_id"`
	Stage      string    `json:"stage"` // last stage reached
	Skipped    bool      `json:"skipped"`
	SkipReason string    `json:"skip_reason,omitempty"`
	ReplySent  bool      `json:"reply_sent"`
	IsRequest  bool      `json:"is_request"`
	TaskFiled  bool      `json:"task_filed"`
	ErrorText  string    `json:"error_text,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// FilterArgs narrows ListRuns.
type FilterArgs struct {
	ChatID  string
	TraceID string
	Limit   int
	Offset  int
}
