package models

import "time"

// Trade represents one journaled position. A trade is open while Exit is nil
// and closed once Exit is set; a closed trade always carries a resolved P&L.
type Trade struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	EntryPrice float64   `json:"entry_price"`
	Quantity   float64   `json:"quantity"`
	EntryDate  time.Time `json:"entry_date"`
	Notes      string    `json:"notes,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Strategy   string    `json:"strategy,omitempty"`
	Exit       *Exit     `json:"exit,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Exit holds the data that only exists for a closed trade.
type Exit struct {
	Price      *float64  `json:"price,omitempty"` // absent when P&L was entered manually
	Date       time.Time `json:"date"`
	PnL        float64   `json:"pnl"`
	PnLPercent *float64  `json:"pnl_percent,omitempty"`
	Manual     bool      `json:"manual,omitempty"`
}

// Status returns the lifecycle state of the trade.
func (t Trade) Status() TradeStatus {
	if t.Exit != nil {
		return StatusClosed
	}
	return StatusOpen
}

// IsClosed reports whether the trade has been closed.
func (t Trade) IsClosed() bool {
	return t.Exit != nil
}

// PnL returns the realized P&L and whether it is resolved.
func (t Trade) PnL() (float64, bool) {
	if t.Exit == nil {
		return 0, false
	}
	return t.Exit.PnL, true
}

// Playbook is a user-authored strategy template that trades reference by name.
type Playbook struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Setup       string    `json:"setup,omitempty"`
	Rules       []string  `json:"rules,omitempty"`
	Timeframe   string    `json:"timeframe,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Attachment is a compressed screenshot stored against a trade.
type Attachment struct {
	ID          string    `json:"id"`
	TradeID     string    `json:"trade_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Size        int       `json:"size"`
	Data        []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
