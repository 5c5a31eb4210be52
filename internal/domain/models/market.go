package models

import "time"

// Candle is one OHLCV bar.
type Candle struct {
	Bucket time.Time
	Asset  string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// MarketSnapshot is the feature row for the latest bar of an asset.
type MarketSnapshot struct {
	Asset      string    `json:"asset"`
	Price      float64   `json:"price"`
	LogReturn  float64   `json:"log_return"`
	Volatility float64   `json:"volatility"`
	RSI        float64   `json:"rsi"`
	Momentum   float64   `json:"momentum"`
	At         time.Time `json:"at"`
}

// Features returns the classifier input vector in training order.
func (s MarketSnapshot) Features() []float64 {
	return []float64{s.LogReturn, s.Volatility, s.RSI, s.Momentum}
}

// ClassifierVote is the classifier's opinion on an asset for one cycle.
type ClassifierVote struct {
	Signal     Signal  `json:"signal"`
	Confidence float64 `json:"confidence"`
	Vote       int     `json:"vote"` // +1 BUY, -1 SELL, 0 none
}

// NoOpinion is the vote used when no classifier serves the asset.
var NoOpinion = ClassifierVote{Signal: SignalNeutral}

// DecisionSnapshot is everything the advisory oracle is shown.
type DecisionSnapshot struct {
	Asset      string         `json:"asset"`
	Market     MarketSnapshot `json:"market"`
	Classifier ClassifierVote `json:"classifier"`
	RuleVote   int            `json:"rule_vote"`
	RiskWeight float64        `json:"risk_weight"`
	RiskMode   RiskMode       `json:"risk_mode"`
	Score      float64        `json:"score"`
	News       string         `json:"news"`
}

const (
	NewsEmpty   = "No news data available."
	NewsOffline = "Newsfeed offline."
)
