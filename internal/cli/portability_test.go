package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "zellax/internal/errors"
	"zellax/internal/models"
)

func TestExportImport(t *testing.T) {
	src := newTestApp(t)
	_, err := run(t, src, "playbook", "add", "Fade", "--timeframe", "5m")
	require.NoError(t, err)
	seedJournal(t, src)
	_, err = run(t, src, "account", "set", "1000")
	require.NoError(t, err)

	out, err := run(t, src, "export")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "version: 1\n"), out)
	assert.Contains(t, out, "symbol: AAPL")

	path := filepath.Join(t.TempDir(), "journal.yaml")
	_, err = run(t, src, "export", "--out", path)
	require.NoError(t, err)

	dst := newTestApp(t)
	var sum map[string]interface{}
	runJSON(t, dst, &sum, "import", path)
	assert.Equal(t, 3.0, sum["trades"])
	assert.Equal(t, 1.0, sum["playbooks"])
	assert.Equal(t, true, sum["balance_set"])

	var want, got []models.Trade
	runJSON(t, src, &want, "trade", "list")
	runJSON(t, dst, &got, "trade", "list")
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Symbol, got[i].Symbol)
		assert.Equal(t, want[i].Exit == nil, got[i].Exit == nil)
		if want[i].Exit != nil {
			assert.Equal(t, want[i].Exit.PnL, got[i].Exit.PnL)
		}
	}

	var acct models.AccountBalance
	runJSON(t, dst, &acct, "account", "show")
	assert.Equal(t, 1050.0, acct.CurrentBalance)

	runJSON(t, dst, &sum, "import", path)
	assert.Equal(t, 1.0, sum["skipped_playbooks"])
	runJSON(t, dst, &got, "trade", "list")
	assert.Len(t, got, 3, "importing twice keeps one copy of each trade")
}

func TestImport_RejectsInvalidDocument(t *testing.T) {
	app := newTestApp(t)
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`version: 1
user_id: someone
trades:
  - id: t1
    symbol: AAPL
    direction: long
    entry_price: 100
    quantity: 1
    entry_date: 2024-03-01T10:00:00Z
  - id: t2
    symbol: MSFT
    direction: long
    entry_price: -3
    quantity: 1
    entry_date: 2024-03-01T10:00:00Z
`), 0o644))

	_, err := run(t, app, "import", bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInvalidNumber)
	assert.Contains(t, err.Error(), "trade 2 (MSFT)")

	var trades []models.Trade
	runJSON(t, app, &trades, "trade", "list")
	assert.Empty(t, trades)

	future := filepath.Join(dir, "future.yaml")
	require.NoError(t, os.WriteFile(future, []byte("version: 9\ntrades: []\n"), 0o644))
	_, err = run(t, app, "import", future)
	assert.ErrorIs(t, err, errs.ErrInputValidation)

	_, err = run(t, app, "import", filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestExportCSV(t *testing.T) {
	app := newTestApp(t)
	seedJournal(t, app)

	out, err := run(t, app, "export", "--format", "csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "id,symbol,"), lines[0])
	assert.Contains(t, lines[1], ",MSFT,long,closed,")
	assert.Contains(t, lines[2], "breakout")
	assert.Contains(t, lines[3], ",TSLA,long,open,")

	_, err = run(t, app, "export", "--format", "xml")
	assert.ErrorIs(t, err, errs.ErrInputValidation)
}
