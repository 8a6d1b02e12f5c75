package cli

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zellax/internal/audit"
	errs "zellax/internal/errors"
	"zellax/internal/models"
)

func TestTradeLifecycle(t *testing.T) {
	app := newTestApp(t)

	trade := addTrade(t, app, "aapl", "--entry", "100", "--qty", "10", "--entry-date", "2024-03-01", "--tags", "breakout,A-Plus")
	require.NotEmpty(t, trade.ID)
	assert.Equal(t, "AAPL", trade.Symbol)
	assert.Equal(t, models.DirectionLong, trade.Direction)
	assert.Nil(t, trade.Exit)
	assert.Equal(t, []string{"breakout", "A-Plus"}, trade.Tags)

	var closed models.Trade
	runJSON(t, app, &closed, "trade", "close", trade.ID, "--exit", "110", "--exit-date", "2024-03-02")
	require.NotNil(t, closed.Exit)
	assert.Equal(t, 100.0, closed.Exit.PnL)
	require.NotNil(t, closed.Exit.PnLPercent)
	assert.InDelta(t, 10.0, *closed.Exit.PnLPercent, 1e-9)
	assert.False(t, closed.Exit.Manual)

	_, err := run(t, app, "trade", "close", trade.ID, "--exit", "120")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInputValidation)

	var edited models.Trade
	runJSON(t, app, &edited, "trade", "edit", trade.ID, "--qty", "20")
	require.NotNil(t, edited.Exit)
	assert.Equal(t, 200.0, edited.Exit.PnL)

	var reopened models.Trade
	runJSON(t, app, &reopened, "trade", "edit", trade.ID, "--reopen")
	assert.Nil(t, reopened.Exit)
	assert.Equal(t, 20.0, reopened.Quantity)

	_, err = run(t, app, "trade", "delete", trade.ID)
	require.NoError(t, err)
	_, err = run(t, app, "trade", "show", trade.ID)
	assert.ErrorIs(t, err, errs.ErrTradeNotFound)
}

func TestTradeAdd_ShortClosed(t *testing.T) {
	app := newTestApp(t)

	trade := addTrade(t, app, "ES", "--direction", "sell", "--entry", "5012.25", "--qty", "2", "--exit", "5001",
		"--entry-date", "2024-03-04 09:30")
	assert.Equal(t, models.DirectionShort, trade.Direction)
	require.NotNil(t, trade.Exit)
	assert.Equal(t, 22.5, trade.Exit.PnL)
	assert.True(t, trade.Exit.Date.Equal(trade.EntryDate))
}

func TestTradeAdd_ManualPnL(t *testing.T) {
	app := newTestApp(t)

	trade := addTrade(t, app, "NQ", "--entry", "17850", "--qty", "1", "--pnl", "-240", "--entry-date", "2024-03-05")
	require.NotNil(t, trade.Exit)
	assert.True(t, trade.Exit.Manual)
	assert.Nil(t, trade.Exit.Price)
	assert.Equal(t, -240.0, trade.Exit.PnL)
}

func TestTradeAdd_Validation(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"zero entry", []string{"AAPL", "--entry", "0", "--qty", "1"}, errs.ErrInvalidNumber},
		{"missing quantity", []string{"AAPL", "--entry", "10"}, errs.ErrInvalidNumber},
		{"bad direction", []string{"AAPL", "--entry", "10", "--qty", "1", "--direction", "up"}, errs.ErrInputValidation},
		{"bad date", []string{"AAPL", "--entry", "10", "--qty", "1", "--entry-date", "soon"}, errs.ErrInputValidation},
		{"exit before entry", []string{"AAPL", "--entry", "10", "--qty", "1", "--entry-date", "2024-03-05",
			"--exit", "11", "--exit-date", "2024-03-01"}, errs.ErrInputValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, app, append([]string{"trade", "add"}, tt.args...)...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	var trades []models.Trade
	runJSON(t, app, &trades, "trade", "list")
	assert.Empty(t, trades)
}

func TestTradeClose_RequiresExit(t *testing.T) {
	app := newTestApp(t)
	trade := addTrade(t, app, "MSFT", "--entry", "400", "--qty", "5")

	_, err := run(t, app, "trade", "close", trade.ID)
	assert.ErrorIs(t, err, errs.ErrMissingField)

	var closed models.Trade
	runJSON(t, app, &closed, "trade", "close", trade.ID, "--pnl", "75")
	require.NotNil(t, closed.Exit)
	assert.True(t, closed.Exit.Date.Equal(testNow))
	assert.True(t, closed.Exit.Manual)
}

func TestTradeList_Filters(t *testing.T) {
	app := newTestApp(t)

	addTrade(t, app, "AAPL", "--entry", "100", "--qty", "1", "--exit", "110", "--entry-date", "2024-03-01", "--strategy", "Breakout")
	addTrade(t, app, "MSFT", "--entry", "100", "--qty", "1", "--entry-date", "2024-03-02", "--tags", "swing")
	addTrade(t, app, "AAPL", "--entry", "100", "--qty", "1", "--exit", "90", "--entry-date", "2024-03-03")

	var trades []models.Trade
	runJSON(t, app, &trades, "trade", "list", "--status", "closed")
	assert.Len(t, trades, 2)

	runJSON(t, app, &trades, "trade", "list", "--symbol", "aapl", "--limit", "1")
	require.Len(t, trades, 1)
	assert.Equal(t, 90.0, *trades[0].Exit.Price)

	runJSON(t, app, &trades, "trade", "list", "--tag", "swing")
	require.Len(t, trades, 1)
	assert.Equal(t, "MSFT", trades[0].Symbol)

	runJSON(t, app, &trades, "trade", "list", "--strategy", "breakout")
	assert.Len(t, trades, 1)

	_, err := run(t, app, "trade", "list", "--status", "pending")
	assert.ErrorIs(t, err, errs.ErrInputValidation)

	out, err := run(t, app, "trade", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "MSFT")
	assert.Contains(t, out, "3 trade(s)")
}

func TestTradeAdd_WarnsUnknownPlaybook(t *testing.T) {
	app := newTestApp(t)

	out, err := run(t, app, "trade", "add", "AAPL", "--entry", "100", "--qty", "1", "--strategy", "Gap Fill")
	require.NoError(t, err)
	assert.Contains(t, out, `Playbook "Gap Fill" does not exist yet`)

	_, err = run(t, app, "playbook", "add", "Gap Fill")
	require.NoError(t, err)
	out, err = run(t, app, "trade", "add", "AAPL", "--entry", "100", "--qty", "1", "--strategy", "gap fill")
	require.NoError(t, err)
	assert.NotContains(t, out, "does not exist")
}

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), uint8(x ^ y), 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	path := filepath.Join(t.TempDir(), "chart.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestTradeAttach(t *testing.T) {
	app := newTestApp(t)
	trade := addTrade(t, app, "ES", "--entry", "5000", "--qty", "1")
	path := writePNG(t, 320, 200)

	var att models.Attachment
	runJSON(t, app, &att, "trade", "attach", trade.ID, path)
	assert.Equal(t, "chart.png", att.Filename)
	assert.Equal(t, "image/jpeg", att.ContentType)
	assert.Equal(t, 320, att.Width)
	assert.Equal(t, 200, att.Height)
	assert.LessOrEqual(t, att.Size, app.Config.Media.MaxImageBytes)

	var shown struct {
		Trade       models.Trade        `json:"trade"`
		Attachments []models.Attachment `json:"attachments"`
	}
	runJSON(t, app, &shown, "trade", "show", trade.ID)
	assert.Equal(t, trade.ID, shown.Trade.ID)
	require.Len(t, shown.Attachments, 1)
	assert.Equal(t, att.ID, shown.Attachments[0].ID)

	_, err := run(t, app, "trade", "attach", "missing", path)
	assert.ErrorIs(t, err, errs.ErrTradeNotFound)

	notImage := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(notImage, []byte("not an image"), 0o644))
	_, err = run(t, app, "trade", "attach", trade.ID, notImage)
	assert.ErrorIs(t, err, errs.ErrUnsupportedImage)
}

func TestTradeCommands_WriteAuditTrail(t *testing.T) {
	app := newTestApp(t)
	var buf bytes.Buffer
	app.Audit = audit.NewWithWriter(&buf, app.userID())

	trade := addTrade(t, app, "AAPL", "--entry", "100", "--qty", "1")
	_, err := run(t, app, "trade", "close", trade.ID, "--exit", "105")
	require.NoError(t, err)
	_, err = run(t, app, "trade", "delete", trade.ID)
	require.NoError(t, err)

	log := buf.String()
	assert.Contains(t, log, `"TRADE_CREATED"`)
	assert.Contains(t, log, `"TRADE_CLOSED"`)
	assert.Contains(t, log, `"TRADE_DELETED"`)
	assert.Contains(t, log, trade.ID)
}
