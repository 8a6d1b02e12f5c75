// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	errs "zellax/internal/errors"
	"zellax/internal/models"
)

// dbtx is the query surface shared by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// SQLiteStore implements JournalStore using SQLite.
type SQLiteStore struct {
	conn *sql.DB
	db   dbtx
	now  func() time.Time
}

// NewSQLiteStore creates a new SQLite-based journal store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		conn: db,
		db:   db,
		now:  func() time.Time { return time.Now().UTC() },
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Journaled trades. A closed trade always has a pnl and an exit date.
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL CHECK (direction IN ('long', 'short')),
		status TEXT NOT NULL CHECK (status IN ('open', 'closed')),
		entry_price REAL NOT NULL,
		quantity REAL NOT NULL,
		entry_date DATETIME NOT NULL,
		exit_price REAL,
		exit_date DATETIME,
		pnl REAL,
		pnl_percent REAL,
		manual_pnl INTEGER NOT NULL DEFAULT 0,
		notes TEXT,
		tags TEXT,
		strategy TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		CHECK (
			(status = 'open' AND pnl IS NULL AND exit_date IS NULL) OR
			(status = 'closed' AND pnl IS NOT NULL AND exit_date IS NOT NULL)
		)
	);

	-- Strategy templates referenced by trades.strategy
	CREATE TABLE IF NOT EXISTS playbooks (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL COLLATE NOCASE,
		description TEXT,
		setup TEXT,
		rules TEXT,
		timeframe TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE(user_id, name)
	);

	-- Per-user starting capital; everything else is derived from trades
	CREATE TABLE IF NOT EXISTS accounts (
		user_id TEXT PRIMARY KEY,
		starting_balance REAL NOT NULL,
		updated_at DATETIME NOT NULL
	);

	-- Compressed trade screenshots
	CREATE TABLE IF NOT EXISTS attachments (
		id TEXT PRIMARY KEY,
		trade_id TEXT NOT NULL REFERENCES trades(id) ON DELETE CASCADE,
		filename TEXT NOT NULL,
		content_type TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		size INTEGER NOT NULL,
		data BLOB NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trades_user ON trades(user_id);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_trades_exit_date ON trades(exit_date);
	CREATE INDEX IF NOT EXISTS idx_attachments_trade ON attachments(trade_id);
	`

	_, err := s.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// WithTx runs fn against a store bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise. Calls
// made on a store already inside a transaction join it.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(JournalStore) error) error {
	if s.conn == nil {
		return fn(s)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&SQLiteStore{db: tx, now: s.now}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SaveTrade inserts a trade or updates it in place, keeping its original
// insertion position. An empty ID is assigned a new UUID.
func (s *SQLiteStore) SaveTrade(ctx context.Context, trade *models.Trade) error {
	now := s.now()
	if trade.ID == "" {
		trade.ID = uuid.NewString()
	}
	if trade.CreatedAt.IsZero() {
		trade.CreatedAt = now
	}
	trade.UpdatedAt = now

	tags, err := json.Marshal(trade.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	var (
		exitPrice, pnl, pnlPercent sql.NullFloat64
		exitDate                   sql.NullTime
		manual                     int
	)
	if trade.Exit != nil {
		if trade.Exit.Price != nil {
			exitPrice = sql.NullFloat64{Float64: *trade.Exit.Price, Valid: true}
		}
		if trade.Exit.PnLPercent != nil {
			pnlPercent = sql.NullFloat64{Float64: *trade.Exit.PnLPercent, Valid: true}
		}
		pnl = sql.NullFloat64{Float64: trade.Exit.PnL, Valid: true}
		exitDate = sql.NullTime{Time: trade.Exit.Date.UTC(), Valid: true}
		if trade.Exit.Manual {
			manual = 1
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trades (id, user_id, symbol, direction, status, entry_price, quantity, entry_date,
			exit_price, exit_date, pnl, pnl_percent, manual_pnl, notes, tags, strategy, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			symbol = excluded.symbol,
			direction = excluded.direction,
			status = excluded.status,
			entry_price = excluded.entry_price,
			quantity = excluded.quantity,
			entry_date = excluded.entry_date,
			exit_price = excluded.exit_price,
			exit_date = excluded.exit_date,
			pnl = excluded.pnl,
			pnl_percent = excluded.pnl_percent,
			manual_pnl = excluded.manual_pnl,
			notes = excluded.notes,
			tags = excluded.tags,
			strategy = excluded.strategy,
			updated_at = excluded.updated_at
	`, trade.ID, trade.UserID, trade.Symbol, string(trade.Direction), string(trade.Status()),
		trade.EntryPrice, trade.Quantity, trade.EntryDate.UTC(),
		exitPrice, exitDate, pnl, pnlPercent, manual,
		trade.Notes, string(tags), trade.Strategy, trade.CreatedAt.UTC(), trade.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save trade: %w", err)
	}
	return nil
}

const tradeColumns = `id, user_id, symbol, direction, entry_price, quantity, entry_date,
	exit_price, exit_date, pnl, pnl_percent, manual_pnl, notes, tags, strategy, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(row rowScanner) (models.Trade, error) {
	var (
		t                          models.Trade
		direction                  string
		exitPrice, pnl, pnlPercent sql.NullFloat64
		exitDate                   sql.NullTime
		manual                     int
		notes, tags, strategy      sql.NullString
	)

	if err := row.Scan(&t.ID, &t.UserID, &t.Symbol, &direction, &t.EntryPrice, &t.Quantity, &t.EntryDate,
		&exitPrice, &exitDate, &pnl, &pnlPercent, &manual, &notes, &tags, &strategy, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return models.Trade{}, err
	}

	t.Direction = models.Direction(direction)
	t.Notes = notes.String
	t.Strategy = strategy.String
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &t.Tags); err != nil {
			return models.Trade{}, fmt.Errorf("failed to decode tags of trade %s: %w", t.ID, err)
		}
	}

	if pnl.Valid && exitDate.Valid {
		exit := &models.Exit{
			Date:   exitDate.Time,
			PnL:    pnl.Float64,
			Manual: manual == 1,
		}
		if exitPrice.Valid {
			price := exitPrice.Float64
			exit.Price = &price
		}
		if pnlPercent.Valid {
			pct := pnlPercent.Float64
			exit.PnLPercent = &pct
		}
		t.Exit = exit
	}

	return t, nil
}

// GetTrade retrieves a trade by ID.
func (s *SQLiteStore) GetTrade(ctx context.Context, id string) (*models.Trade, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+tradeColumns+" FROM trades WHERE id = ?", id)
	t, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", errs.ErrTradeNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return &t, nil
}

// ListTrades retrieves trades in insertion order. With a limit, the most
// recently inserted trades are returned, still in insertion order.
func (s *SQLiteStore) ListTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error) {
	query := "SELECT " + tradeColumns + " FROM trades WHERE 1=1"
	args := []interface{}{}

	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, strings.ToUpper(filter.Symbol))
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.Strategy != "" {
		query += " AND strategy = ? COLLATE NOCASE"
		args = append(args, filter.Strategy)
	}
	if filter.Tag != "" {
		query += " AND EXISTS (SELECT 1 FROM json_each(trades.tags) WHERE json_each.value = ?)"
		args = append(args, filter.Tag)
	}
	if !filter.StartDate.IsZero() {
		query += " AND entry_date >= ?"
		args = append(args, filter.StartDate.UTC())
	}
	if !filter.EndDate.IsZero() {
		query += " AND entry_date <= ?"
		args = append(args, filter.EndDate.UTC())
	}

	query += " ORDER BY rowid ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if filter.Limit > 0 && len(trades) > filter.Limit {
		trades = trades[len(trades)-filter.Limit:]
	}
	return trades, nil
}

// DeleteTrade removes a trade and its attachments.
func (s *SQLiteStore) DeleteTrade(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM trades WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", errs.ErrTradeNotFound, id)
	}
	return nil
}

// SavePlaybook inserts or updates a playbook. Names are unique per user,
// ignoring case.
func (s *SQLiteStore) SavePlaybook(ctx context.Context, playbook *models.Playbook) error {
	now := s.now()
	if playbook.ID == "" {
		playbook.ID = uuid.NewString()
	}
	if playbook.CreatedAt.IsZero() {
		playbook.CreatedAt = now
	}
	playbook.UpdatedAt = now

	rules, _ := json.Marshal(playbook.Rules)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO playbooks (id, user_id, name, description, setup, rules, timeframe, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			setup = excluded.setup,
			rules = excluded.rules,
			timeframe = excluded.timeframe,
			updated_at = excluded.updated_at
	`, playbook.ID, playbook.UserID, playbook.Name, playbook.Description, playbook.Setup,
		string(rules), playbook.Timeframe, playbook.CreatedAt.UTC(), playbook.UpdatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: %s", errs.ErrPlaybookExists, playbook.Name)
		}
		return fmt.Errorf("failed to save playbook: %w", err)
	}
	return nil
}

const playbookColumns = "id, user_id, name, description, setup, rules, timeframe, created_at, updated_at"

func scanPlaybook(row rowScanner) (models.Playbook, error) {
	var (
		p                                   models.Playbook
		description, setup, rules, timeframe sql.NullString
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &description, &setup, &rules, &timeframe, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return models.Playbook{}, err
	}
	p.Description = description.String
	p.Setup = setup.String
	p.Timeframe = timeframe.String
	if rules.Valid && rules.String != "" {
		json.Unmarshal([]byte(rules.String), &p.Rules)
	}
	return p, nil
}

// GetPlaybook retrieves a playbook by name, ignoring case.
func (s *SQLiteStore) GetPlaybook(ctx context.Context, userID, name string) (*models.Playbook, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+playbookColumns+" FROM playbooks WHERE user_id = ? AND name = ?", userID, name)
	p, err := scanPlaybook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", errs.ErrPlaybookNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get playbook: %w", err)
	}
	return &p, nil
}

// ListPlaybooks retrieves all playbooks of a user ordered by name.
func (s *SQLiteStore) ListPlaybooks(ctx context.Context, userID string) ([]models.Playbook, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+playbookColumns+" FROM playbooks WHERE user_id = ? ORDER BY name", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playbooks: %w", err)
	}
	defer rows.Close()

	var playbooks []models.Playbook
	for rows.Next() {
		p, err := scanPlaybook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playbook: %w", err)
		}
		playbooks = append(playbooks, p)
	}
	return playbooks, rows.Err()
}

// DeletePlaybook removes a playbook. Trades referencing it keep their
// strategy text.
func (s *SQLiteStore) DeletePlaybook(ctx context.Context, userID, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM playbooks WHERE user_id = ? AND name = ?", userID, name)
	if err != nil {
		return fmt.Errorf("failed to delete playbook: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", errs.ErrPlaybookNotFound, name)
	}
	return nil
}

// GetAccount retrieves the stored starting balance of a user. Derived
// fields are left for the caller to compute from the trades.
func (s *SQLiteStore) GetAccount(ctx context.Context, userID string) (*models.AccountBalance, error) {
	acct := &models.AccountBalance{UserID: userID}
	err := s.db.QueryRowContext(ctx, "SELECT starting_balance, updated_at FROM accounts WHERE user_id = ?", userID).
		Scan(&acct.StartingBalance, &acct.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", errs.ErrAccountNotSet, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acct, nil
}

// SetStartingBalance creates or updates the starting balance of a user.
func (s *SQLiteStore) SetStartingBalance(ctx context.Context, userID string, balance float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (user_id, starting_balance, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET starting_balance = excluded.starting_balance, updated_at = excluded.updated_at
	`, userID, balance, s.now())
	if err != nil {
		return fmt.Errorf("failed to set starting balance: %w", err)
	}
	return nil
}

// SaveAttachment stores a compressed screenshot against an existing trade.
func (s *SQLiteStore) SaveAttachment(ctx context.Context, attachment *models.Attachment) error {
	if attachment.ID == "" {
		attachment.ID = uuid.NewString()
	}
	if attachment.CreatedAt.IsZero() {
		attachment.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attachments (id, trade_id, filename, content_type, width, height, size, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, attachment.ID, attachment.TradeID, attachment.Filename, attachment.ContentType,
		attachment.Width, attachment.Height, len(attachment.Data), attachment.Data, attachment.CreatedAt.UTC())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return fmt.Errorf("%w: %s", errs.ErrTradeNotFound, attachment.TradeID)
		}
		return fmt.Errorf("failed to save attachment: %w", err)
	}
	attachment.Size = len(attachment.Data)
	return nil
}

// ListAttachments retrieves the attachments of a trade in creation order.
func (s *SQLiteStore) ListAttachments(ctx context.Context, tradeID string) ([]models.Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, trade_id, filename, content_type, width, height, size, data, created_at
		FROM attachments WHERE trade_id = ? ORDER BY rowid ASC
	`, tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachments: %w", err)
	}
	defer rows.Close()

	var attachments []models.Attachment
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.TradeID, &a.Filename, &a.ContentType, &a.Width, &a.Height, &a.Size, &a.Data, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}
