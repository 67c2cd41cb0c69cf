// Package timeline stores chat transcripts and the pipeline run log in SQLite.
package timeline

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type TimelineService struct {
	db *sql.DB
}

func NewTimelineService(dbPath string) (*TimelineService, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open timeline db: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &TimelineService{db: db}, nil
}

func (s *TimelineService) DB() *sql.DB { return s.db }

func (s *TimelineService) Close() error {
	return s.db.Close()
}

// AddMessage appends msg to its chat's transcript.
func (s *TimelineService) AddMessage(ctx context.Context, msg *Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if msg.MsgType == "" {
		msg.MsgType = "chat"
	}
	if msg.Source == "" {
		msg.Source = SourceLive
	}
	query := `
	INSERT INTO messages (message_id, chat_id, sender_id, sender_name, from_me, body, msg_type, source, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query,
		msg.MessageID,
		msg.ChatID,
		msg.SenderID,
		msg.SenderName,
		msg.FromMe,
		msg.Body,
		msg.MsgType,
		msg.Source,
		msg.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	msg.ID, _ = res.LastInsertId()
	return nil
}

// Transcript returns the chat's messages oldest first. With limit > 0 only the
// most recent limit rows are returned, still oldest first.
func (s *TimelineService) Transcript(ctx context.Context, chatID string, limit int) ([]Message, error) {
	query := `SELECT id, message_id, chat_id, COALESCE(sender_id,''), COALESCE(sender_name,''), from_me, COALESCE(body,''), msg_type, source, timestamp
	FROM messages WHERE chat_id = ? ORDER BY timestamp DESC, id DESC`
	args := []interface{}{chatID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		err := rows.Scan(
			&m.ID,
			&m.MessageID,
			&m.ChatID,
			&m.SenderID,
			&m.SenderName,
			&m.FromMe,
			&m.Body,
			&m.MsgType,
			&m.Source,
			&m.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// RecordRun stores one pipeline outcome.
func (s *TimelineService) RecordRun(ctx context.Context, run *PipelineRun) error {
	query := `
	INSERT INTO pipeline_runs (trace_id, chat_id, message_id, stage, skipped, skip_reason, reply_sent, is_request, task_filed, error_text, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query,
		run.TraceID,
		run.ChatID,
		run.MessageID,
		run.Stage,
		run.Skipped,
		run.SkipReason,
		run.ReplySent,
		run.IsRequest,
		run.TaskFiled,
		run.ErrorText,
		run.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	run.ID, _ = res.LastInsertId()
	return nil
}

// ListRuns returns runs newest first.
func (s *TimelineService) ListRuns(ctx context.Context, filter FilterArgs) ([]PipelineRun, error) {
	query := `SELECT id, trace_id, chat_id, COALESCE(message_id,''), stage, skipped, COALESCE(skip_reason,''), reply_sent, is_request, task_filed, COALESCE(error_text,''), duration_ms, created_at
	FROM pipeline_runs WHERE 1=1`
	args := []interface{}{}

	if filter.ChatID != "" {
		query += " AND chat_id = ?"
		args = append(args, filter.ChatID)
	}
	if filter.TraceID != "" {
		query += " AND trace_id = ?"
		args = append(args, filter.TraceID)
	}

	query += " ORDER BY id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []PipelineRun
	for rows.Next() {
		var r PipelineRun
		err := rows.Scan(
			&r.ID,
			&r.TraceID,
			&r.ChatID,
			&r.MessageID,
			&r.Stage,
			&r.Skipped,
			&r.SkipReason,
			&r.ReplySent,
			&r.IsRequest,
			&r.TaskFiled,
			&r.ErrorText,
			&r.DurationMs,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *TimelineService) GetSetting(key string) (string, error) {
	var val string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&val)
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s *TimelineService) SetSetting(key, value string) error {
	_, err := s.db.Exec("INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value", key, value)
	return err
}
