package models

import "time"

// DecisionEvent is the record emitted for every delivered cycle.
type DecisionEvent struct {
	ID          string    `json:"id"`
	Asset       string    `json:"asset"`
	Signal      Signal    `json:"signal"`
	Confidence  float64   `json:"confidence"`
	Price       float64   `json:"price"`
	RSI         float64   `json:"rsi"`
	Momentum    float64   `json:"momentum"`
	Volatility  float64   `json:"volatility"`
	RiskMode    RiskMode  `json:"risk_mode"`
	TradeStatus string    `json:"trade_status"`
	RealizedPnL float64   `json:"realized_pnl"`
	Proof       string    `json:"proof"`
	At          time.Time `json:"at"`
}
