// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"zellax/internal/models"
)

// JournalStore defines the interface for journal persistence.
type JournalStore interface {
	// Trades
	SaveTrade(ctx context.Context, trade *models.Trade) error
	GetTrade(ctx context.Context, id string) (*models.Trade, error)
	ListTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error)
	DeleteTrade(ctx context.Context, id string) error

	// Playbooks
	SavePlaybook(ctx context.Context, playbook *models.Playbook) error
	GetPlaybook(ctx context.Context, userID, name string) (*models.Playbook, error)
	ListPlaybooks(ctx context.Context, userID string) ([]models.Playbook, error)
	DeletePlaybook(ctx context.Context, userID, name string) error

	// Account
	GetAccount(ctx context.Context, userID string) (*models.AccountBalance, error)
	SetStartingBalance(ctx context.Context, userID string, balance float64) error

	// Attachments
	SaveAttachment(ctx context.Context, attachment *models.Attachment) error
	ListAttachments(ctx context.Context, tradeID string) ([]models.Attachment, error)

	// WithTx runs fn inside one transaction, rolling back when it fails.
	WithTx(ctx context.Context, fn func(JournalStore) error) error

	// Lifecycle
	Close() error
}

// TradeFilter represents filters for querying trades. Results are returned in
// insertion order.
type TradeFilter struct {
	UserID    string
	Symbol    string
	Status    models.TradeStatus
	Strategy  string
	Tag       string
	StartDate time.Time // entry date lower bound
	EndDate   time.Time // entry date upper bound
	Limit     int
}
