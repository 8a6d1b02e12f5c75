package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zellax/internal/models"
)

func decodeLines(t *testing.T, data []byte) []Event {
	t.Helper()
	var events []Event
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var e Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		events = append(events, e)
	}
	return events
}

func TestLogTradeLifecycle(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "u1")
	ctx := context.Background()

	trade := models.Trade{ID: "t1", UserID: "u1", Symbol: "AAPL", Direction: models.DirectionLong, EntryPrice: 100, Quantity: 10}
	require.NoError(t, l.LogTrade(ctx, TradeCreated, trade))

	trade.Exit = &models.Exit{Date: time.Now(), PnL: 125}
	require.NoError(t, l.LogTrade(ctx, TradeClosed, trade))
	require.NoError(t, l.LogTradeDeleted(ctx, trade))

	events := decodeLines(t, buf.Bytes())
	require.Len(t, events, 3)
	assert.Equal(t, TradeCreated, events[0].EventType)
	assert.NotContains(t, events[0].Details, "pnl")
	assert.Equal(t, 125.0, events[1].Details["pnl"])
	assert.Equal(t, "closed", events[1].Details["status"])
	assert.Equal(t, TradeDeleted, events[2].EventType)

	// One session per logger.
	assert.NotEmpty(t, events[0].SessionID)
	assert.Equal(t, events[0].SessionID, events[2].SessionID)
}

func TestDefaultUserID(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "owner")
	require.NoError(t, l.LogAttachment(context.Background(), models.Attachment{ID: "a1", TradeID: "t1", Size: 42}))

	events := decodeLines(t, buf.Bytes())
	require.Len(t, events, 1)
	assert.Equal(t, "owner", events[0].UserID)
	assert.Equal(t, AttachmentAdded, events[0].EventType)
}

func TestDisabledLoggerDropsEvents(t *testing.T) {
	l := Disabled()
	assert.NoError(t, l.LogBalance(context.Background(), "u1", 1000))
	assert.NoError(t, l.Close())
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.log")
	l, err := New(Config{Path: path, MaxSize: 1}, "u1")
	require.NoError(t, err)

	require.NoError(t, l.LogBulk(context.Background(), JournalImported, "u1", 12, 2))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	events := decodeLines(t, data)
	require.Len(t, events, 1)
	assert.Equal(t, 12.0, events[0].Details["trades"])
}
