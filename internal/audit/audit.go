// Package audit records every change made to the journal as a JSON line.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"

	"zellax/internal/models"
)

// EventType represents the type of audit event.
type EventType string

const (
	// Trade events
	TradeCreated EventType = "TRADE_CREATED"
	TradeUpdated EventType = "TRADE_UPDATED"
	TradeClosed  EventType = "TRADE_CLOSED"
	TradeDeleted EventType = "TRADE_DELETED"

	// Playbook events
	PlaybookCreated EventType = "PLAYBOOK_CREATED"
	PlaybookDeleted EventType = "PLAYBOOK_DELETED"

	// Account and media events
	BalanceSet      EventType = "BALANCE_SET"
	AttachmentAdded EventType = "ATTACHMENT_ADDED"

	// Bulk events
	JournalImported EventType = "JOURNAL_IMPORTED"
	JournalExported EventType = "JOURNAL_EXPORTED"
)

// Event represents a single audit log entry.
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	EventType EventType              `json:"event_type"`
	UserID    string                 `json:"user_id,omitempty"`
	TradeID   string                 `json:"trade_id,omitempty"`
	Symbol    string                 `json:"symbol,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	SessionID string                 `json:"session_id"`
}

// Config holds audit logger configuration.
type Config struct {
	Path       string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// Logger appends audit events. A nil or disabled Logger drops events.
type Logger struct {
	writer    io.Writer
	closer    io.Closer
	mu        sync.Mutex
	sessionID string
	userID    string
	now       func() time.Time
}

// New creates an audit logger writing to a rotating file.
func New(cfg Config, userID string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0700); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	writer := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   true,
	}
	l := NewWithWriter(writer, userID)
	l.closer = writer
	return l, nil
}

// NewWithWriter creates an audit logger over an arbitrary writer.
func NewWithWriter(w io.Writer, userID string) *Logger {
	return &Logger{
		writer:    w,
		sessionID: uuid.NewString(),
		userID:    userID,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Disabled returns a logger that drops every event.
func Disabled() *Logger {
	return nil
}

// Log writes an audit event.
func (l *Logger) Log(ctx context.Context, event Event) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	event.Timestamp = l.now()
	event.SessionID = l.sessionID
	if event.UserID == "" {
		event.UserID = l.userID
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serializing audit event: %w", err)
	}
	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing audit event: %w", err)
	}
	return nil
}

// LogTrade records a trade mutation with its current values.
func (l *Logger) LogTrade(ctx context.Context, eventType EventType, t models.Trade) error {
	details := map[string]interface{}{
		"direction":   t.Direction,
		"entry_price": t.EntryPrice,
		"quantity":    t.Quantity,
		"status":      t.Status(),
	}
	if t.Strategy != "" {
		details["strategy"] = t.Strategy
	}
	if pnl, ok := t.PnL(); ok {
		details["pnl"] = pnl
	}
	return l.Log(ctx, Event{
		EventType: eventType,
		UserID:    t.UserID,
		TradeID:   t.ID,
		Symbol:    t.Symbol,
		Details:   details,
	})
}

// LogTradeDeleted records a trade removal.
func (l *Logger) LogTradeDeleted(ctx context.Context, t models.Trade) error {
	return l.Log(ctx, Event{EventType: TradeDeleted, UserID: t.UserID, TradeID: t.ID, Symbol: t.Symbol})
}

// LogPlaybook records a playbook mutation.
func (l *Logger) LogPlaybook(ctx context.Context, eventType EventType, userID, name string) error {
	return l.Log(ctx, Event{
		EventType: eventType,
		UserID:    userID,
		Details:   map[string]interface{}{"name": name},
	})
}

// LogBalance records a starting balance change.
func (l *Logger) LogBalance(ctx context.Context, userID string, balance float64) error {
	return l.Log(ctx, Event{
		EventType: BalanceSet,
		UserID:    userID,
		Details:   map[string]interface{}{"starting_balance": balance},
	})
}

// LogAttachment records a stored screenshot.
func (l *Logger) LogAttachment(ctx context.Context, a models.Attachment) error {
	return l.Log(ctx, Event{
		EventType: AttachmentAdded,
		TradeID:   a.TradeID,
		Details: map[string]interface{}{
			"attachment_id": a.ID,
			"filename":      a.Filename,
			"bytes":         a.Size,
		},
	})
}

// LogBulk records an import or export.
func (l *Logger) LogBulk(ctx context.Context, eventType EventType, userID string, trades, playbooks int) error {
	return l.Log(ctx, Event{
		EventType: eventType,
		UserID:    userID,
		Details:   map[string]interface{}{"trades": trades, "playbooks": playbooks},
	})
}

// Close closes the underlying file, if any.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
