package models

import "time"

const (
	StartingBalance = 10000.0
	TradeNotional   = 1000.0
	TakeProfitPct   = 0.015
	StopLossPct     = -0.03
)

// Position is one open paper trade.
type Position struct {
	Asset      string    `json:"ticker"`
	EntryPrice float64   `json:"entry_price"`
	Units      float64   `json:"units"`
	OpenedAt   time.Time `json:"timestamp"`
}

// ClosedTrade is a history record written when a position exits.
type ClosedTrade struct {
	Asset      string    `json:"ticker"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Units      float64   `json:"units"`
	Profit     float64   `json:"profit"`
	ClosedAt   time.Time `json:"timestamp"`
}

// LedgerState is the durable portfolio document.
type LedgerState struct {
	Balance   float64       `json:"balance"`
	Positions []Position    `json:"positions"`
	History   []ClosedTrade `json:"history"`
}

// NewLedgerState returns a fresh portfolio with the starting balance.
func NewLedgerState() *LedgerState {
	return &LedgerState{
		Balance:   StartingBalance,
		Positions: []Position{},
		History:   []ClosedTrade{},
	}
}

// Clone deep-copies the state.
func (s *LedgerState) Clone() *LedgerState {
	c := &LedgerState{
		Balance:   s.Balance,
		Positions: make([]Position, len(s.Positions)),
		History:   make([]ClosedTrade, len(s.History)),
	}
	copy(c.Positions, s.Positions)
	copy(c.History, s.History)
	return c
}

// Stats summarises the ledger. Equity values open positions at entry price.
type Stats struct {
	Balance    float64 `json:"balance"`
	Equity     float64 `json:"equity"`
	PnLPercent float64 `json:"pnl_pct"`
	OpenTrades int     `json:"open_trades"`
}

// CycleResult reports what one evaluate-then-maybe-open cycle did.
type CycleResult struct {
	Closed            []ClosedTrade `json:"closed"`
	RealizedPnL       float64       `json:"realized_pnl"`
	Opened            *Position     `json:"opened,omitempty"`
	InsufficientFunds bool          `json:"insufficient_funds"`
	Stats             Stats         `json:"stats"`
}

// Portfolio is the read-only view served by /portfolio.
type Portfolio struct {
	Stats     Stats         `json:"stats"`
	Positions []Position    `json:"positions"`
	History   []ClosedTrade `json:"history"`
}
