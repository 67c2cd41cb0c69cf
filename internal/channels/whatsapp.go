package channels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kamir/recepbot/internal/agent"
	"github.com/kamir/recepbot/internal/bus"
	"github.com/kamir/recepbot/internal/config"
	"github.com/kamir/recepbot/internal/timeline"
	"github.com/skip2/go-qrcode"

	_ "modernc.org/sqlite"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
)

// SelfNameSetting is the timeline setting caching the account's display name.
const SelfNameSetting = "self_name"

// transcriptOverfetch widens the row window so duplicate rows from history sync
// and live ingestion do not crowd out distinct messages.
const transcriptOverfetch = 3

// liveEventTimeout bounds the timeline write for one live message.
const liveEventTimeout = 5 * time.Second

// ErrNotConnected is returned by Send before Start has connected the client.
var ErrNotConnected = errors.New("whatsapp client not initialized")

// WhatsAppChannel implements a native WhatsApp client. It publishes inbound
// messages to the bus and keeps every message it sees in the timeline, which
// is where transcripts are read back from.
type WhatsAppChannel struct {
	BaseChannel
	client          *whatsmeow.Client
	config          config.WhatsAppConfig
	sessionDB       string
	transcriptLimit int
	container       *sqlstore.Container
	timeline        *timeline.TimelineService
	sendFn          func(ctx context.Context, jid types.JID, text string) (whatsmeow.SendResponse, error)

	mu       sync.RWMutex
	selfName string
}

// NewWhatsAppChannel creates a new WhatsApp channel.
func NewWhatsAppChannel(cfg *config.Config, messageBus *bus.MessageBus, tl *timeline.TimelineService) *WhatsAppChannel {
	wa := cfg.Channels.WhatsApp
	if wa.QRFile == "" {
		wa.QRFile = cfg.DBPath("whatsapp-qr.png")
	}
	return &WhatsAppChannel{
		BaseChannel:     BaseChannel{Bus: messageBus},
		config:          wa,
		sessionDB:       cfg.DBPath("whatsapp.db"),
		transcriptLimit: cfg.Pipeline.TranscriptLimit,
		timeline:        tl,
	}
}

func (c *WhatsAppChannel) Name() string { return "whatsapp" }

// Start opens the session store, pairs by QR code when no session exists and connects.
// It returns once the client is connected.
func (c *WhatsAppChannel) Start(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	dbLog := waLog.Stdout("Database", "WARN", true)
	clientLog := waLog.Stdout("Client", "INFO", true)

	if err := os.MkdirAll(filepath.Dir(c.sessionDB), 0755); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}

	container, err := sqlstore.New(ctx, "sqlite", "file:"+c.sessionDB+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbLog)
	if err != nil {
		return fmt.Errorf("failed to init whatsapp db: %w", err)
	}
	c.container = container

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("failed to get device: %w", err)
	}

	c.client = whatsmeow.NewClient(deviceStore, clientLog)
	c.client.AddEventHandler(c.eventHandler)

	if c.client.Store.ID != nil {
		if err := c.client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		slog.Info("WhatsApp connected", "self_name", c.SelfName())
		return nil
	}

	qrChan, err := c.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get qr channel: %w", err)
	}
	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	fmt.Println("WhatsApp: Scan this QR code to login:")
	for evt := range qrChan {
		switch evt.Event {
		case "code":
			c.showQR(evt.Code)
		case "success":
			slog.Info("WhatsApp paired", "self_name", c.SelfName())
			return nil
		case "timeout":
			return errors.New("whatsapp pairing timed out")
		default:
			slog.Info("WhatsApp login event", "event", evt.Event)
		}
	}
	if c.client.Store.ID == nil {
		return errors.New("whatsapp pairing did not complete")
	}
	return nil
}

func (c *WhatsAppChannel) showQR(code string) {
	if err := qrcode.WriteFile(code, qrcode.Medium, 512, c.config.QRFile); err != nil {
		slog.Warn("Failed to write QR code", "path", c.config.QRFile, "error", err)
	} else {
		fmt.Printf("\nWhatsApp login QR code saved to: %s\n", c.config.QRFile)
	}
	q, err := qrcode.New(code, qrcode.Low)
	if err != nil {
		return
	}
	fmt.Println(q.ToSmallString(false))
}

func (c *WhatsAppChannel) Stop() error {
	if c.client != nil {
		c.client.Disconnect()
	}
	if c.container != nil {
		return c.container.Close()
	}
	return nil
}

// Send delivers text to chatID and records it in the transcript as the account's own message.
func (c *WhatsAppChannel) Send(ctx context.Context, chatID, text string) error {
	jid, err := types.ParseJID(chatID)
	if err != nil {
		return fmt.Errorf("invalid JID: %w", err)
	}

	resp, err := c.sendText(ctx, jid, text)
	if err != nil {
		return err
	}

	c.record(ctx, &timeline.Message{
		MessageID:  string(resp.ID),
		ChatID:     jid.String(),
		SenderName: c.SelfName(),
		FromMe:     true,
		Body:       text,
		MsgType:    string(bus.MessageTypeChat),
		Source:     timeline.SourceOutbound,
		Timestamp:  outboundTimestamp(resp),
	})
	return nil
}

func (c *WhatsAppChannel) sendText(ctx context.Context, jid types.JID, text string) (whatsmeow.SendResponse, error) {
	if c.sendFn != nil {
		return c.sendFn(ctx, jid, text)
	}
	if c.client == nil {
		return whatsmeow.SendResponse{}, ErrNotConnected
	}
	return c.client.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: proto.String(text),
	})
}

// outboundTimestamp stamps a sent message on the server clock at the same
// one-second resolution as received messages, so ties fall back to insertion order.
func outboundTimestamp(resp whatsmeow.SendResponse) time.Time {
	ts := resp.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return ts.Truncate(time.Second)
}

// FetchTranscript returns the stored conversation for chatID, oldest first.
// Entries without text are left out. The transcript limit counts distinct
// messages; duplicate rows of those messages are kept for the reader to dedupe.
func (c *WhatsAppChannel) FetchTranscript(ctx context.Context, chatID string) ([]agent.TranscriptEntry, error) {
	if c.timeline == nil {
		return nil, errors.New("no timeline configured")
	}
	fetch := c.transcriptLimit
	if fetch > 0 {
		fetch *= transcriptOverfetch
	}
	msgs, err := c.timeline.Transcript(ctx, chatID, fetch)
	if err != nil {
		return nil, err
	}
	msgs = lastDistinct(msgs, c.transcriptLimit)

	entries := make([]agent.TranscriptEntry, 0, len(msgs))
	for _, m := range msgs {
		if strings.TrimSpace(m.Body) == "" {
			continue
		}
		kind := agent.SenderContact
		if m.FromMe {
			kind = agent.SenderSelf
		}
		entries = append(entries, agent.TranscriptEntry{
			ID:         m.MessageID,
			SenderName: m.SenderName,
			Body:       m.Body,
			Kind:       kind,
		})
	}
	return entries, nil
}

// lastDistinct keeps the rows of the most recent limit distinct non-blank
// messages, oldest first.
func lastDistinct(msgs []timeline.Message, limit int) []timeline.Message {
	if limit <= 0 {
		return msgs
	}
	seen := make(map[string]bool, limit)
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.MessageID == "" || strings.TrimSpace(m.Body) == "" || seen[m.MessageID] {
			continue
		}
		if len(seen) == limit {
			return msgs[i+1:]
		}
		seen[m.MessageID] = true
	}
	return msgs
}

// SelfName is the account's display name: the configured override, else the
// session push name, else the last one seen.
func (c *WhatsAppChannel) SelfName() string {
	if c.config.SelfName != "" {
		return c.config.SelfName
	}

	c.mu.RLock()
	name := c.selfName
	c.mu.RUnlock()
	if name != "" {
		return name
	}

	if c.client != nil && c.client.Store != nil && c.client.Store.PushName != "" {
		name = c.client.Store.PushName
		if c.timeline != nil {
			if err := c.timeline.SetSetting(SelfNameSetting, name); err != nil {
				slog.Warn("Failed to cache self name", "error", err)
			}
		}
	} else if c.timeline != nil {
		name, _ = c.timeline.GetSetting(SelfNameSetting)
	}
	if name == "" {
		return ""
	}

	c.mu.Lock()
	c.selfName = name
	c.mu.Unlock()
	return name
}

func (c *WhatsAppChannel) eventHandler(evt interface{}) {
	switch v := evt.(type) {
	case *events.Message:
		ctx, cancel := context.WithTimeout(context.Background(), liveEventTimeout)
		defer cancel()
		c.handleMessage(ctx, v, timeline.SourceLive)
	case *events.HistorySync:
		c.handleHistorySync(context.Background(), v)
	case *events.Connected:
		slog.Info("WhatsApp session ready")
	case *events.LoggedOut:
		slog.Warn("WhatsApp session logged out; run the gateway again to pair")
	}
}

// handleMessage records the message and, for live messages from authorized
// contacts, publishes it to the dispatcher.
func (c *WhatsAppChannel) handleMessage(ctx context.Context, v *events.Message, source string) {
	if v == nil || v.Info.Chat.Server == types.BroadcastServer {
		return
	}

	body, msgType := extractText(v.Message)
	sender := v.Info.Sender
	senderName := contactName(v)
	if v.Info.IsFromMe {
		if self := c.SelfName(); self != "" {
			senderName = self
		}
	}

	c.record(ctx, &timeline.Message{
		MessageID:  string(v.Info.ID),
		ChatID:     v.Info.Chat.String(),
		SenderID:   sender.String(),
		SenderName: senderName,
		FromMe:     v.Info.IsFromMe,
		Body:       body,
		MsgType:    string(msgType),
		Source:     source,
		Timestamp:  v.Info.Timestamp,
	})

	if source != timeline.SourceLive || v.Info.IsFromMe {
		return
	}
	if !c.isAllowed(sender) {
		slog.Info("Unauthorized sender; message recorded only", "sender", sender.User)
		return
	}

	c.publish(c.Name(), &bus.InboundMessage{
		ID:         string(v.Info.ID),
		ChatID:     v.Info.Chat.String(),
		SenderID:   sender.String(),
		SenderName: senderName,
		Content:    body,
		IsGroup:    v.Info.IsGroup,
		Type:       msgType,
		Timestamp:  v.Info.Timestamp,
	})
}

func (c *WhatsAppChannel) handleHistorySync(ctx context.Context, v *events.HistorySync) {
	if c.client == nil || v.Data == nil {
		return
	}
	stored := 0
	for _, conv := range v.Data.GetConversations() {
		chatJID, err := types.ParseJID(conv.GetID())
		if err != nil {
			continue
		}
		for _, hm := range conv.GetMessages() {
			evt, err := c.client.ParseWebMessage(chatJID, hm.GetMessage())
			if err != nil {
				continue
			}
			c.handleMessage(ctx, evt, timeline.SourceHistorySync)
			stored++
		}
	}
	slog.Info("WhatsApp history sync ingested", "messages", stored)
}

func (c *WhatsAppChannel) record(ctx context.Context, msg *timeline.Message) {
	if c.timeline == nil {
		return
	}
	if err := c.timeline.AddMessage(ctx, msg); err != nil {
		slog.Warn("Failed to record message", "chat_id", msg.ChatID, "error", err)
	}
}

func (c *WhatsAppChannel) isAllowed(sender types.JID) bool {
	if len(c.config.AllowFrom) == 0 {
		return true
	}
	for _, allowed := range c.config.AllowFrom {
		if allowed == sender.User || allowed == sender.String() {
			return true
		}
	}
	return false
}

// extractText returns the message text and whether it is a plain chat message.
// Media captions are kept as text of a non-chat message.
func extractText(m *waE2E.Message) (string, bus.MessageType) {
	switch {
	case m == nil:
		return "", bus.MessageTypeOther
	case m.GetConversation() != "":
		return m.GetConversation(), bus.MessageTypeChat
	case m.GetExtendedTextMessage().GetText() != "":
		return m.GetExtendedTextMessage().GetText(), bus.MessageTypeChat
	case m.GetImageMessage() != nil:
		return m.GetImageMessage().GetCaption(), bus.MessageTypeOther
	case m.GetVideoMessage() != nil:
		return m.GetVideoMessage().GetCaption(), bus.MessageTypeOther
	case m.GetDocumentMessage() != nil:
		return m.GetDocumentMessage().GetCaption(), bus.MessageTypeOther
	}
	return "", bus.MessageTypeOther
}

// contactName resolves the sender's display name: push name, verified
// business name, then phone number.
func contactName(v *events.Message) string {
	if name := strings.TrimSpace(v.Info.PushName); name != "" {
		return name
	}
	if vn := v.Info.VerifiedName; vn != nil && vn.Details != nil {
		if name := strings.TrimSpace(vn.Details.GetVerifiedName()); name != "" {
			return name
		}
	}
	return v.Info.Sender.User
}
