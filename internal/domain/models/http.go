package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Trade status strings surfaced in signal responses.
const (
	TradeScanning          = "Scanning"
	TradeOpened            = "OPENED POSITION ($1000)"
	TradeInsufficientFunds = "INSUFFICIENT FUNDS"
)

const StatusPaid = "PAID"

// SignalResponse is the body of a paid /signal request.
type SignalResponse struct {
	Status string     `json:"status"`
	Data   SignalData `json:"data"`
}

type SignalData struct {
	Signal      Signal        `json:"signal"`
	Confidence  float64       `json:"confidence"`
	MarketPrice float64       `json:"market_price"`
	Details     SignalDetails `json:"details"`
}

type SignalDetails struct {
	Asset       string   `json:"asset"`
	Momentum    float64  `json:"momentum"`
	Volatility  float64  `json:"volatility"`
	RSI         float64  `json:"rsi"`
	News        string   `json:"news"`
	Reasoning   string   `json:"reasoning"`
	RiskMode    RiskMode `json:"risk_mode"`
	Balance     float64  `json:"balance"`
	Equity      float64  `json:"equity"`
	PnL         float64  `json:"pnl"`
	OpenTrades  int      `json:"open_trades"`
	TradeStatus string   `json:"trade_status"`
}

// ChallengeResponse repeats the 402 headers in the body.
type ChallengeResponse struct {
	Detail       string `json:"detail"`
	Price        string `json:"price"`
	PayeeAddress string `json:"payee_address"`
	TokenAddress string `json:"token_address"`
}

type SetAssetRequest struct {
	Ticker string `json:"ticker" validate:"required,max=32"`
}

// Level accepts a JSON number or a numeric string.
type Level float64

func (l *Level) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("level must be numeric")
		}
		n = json.Number(strings.TrimSpace(s))
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return fmt.Errorf("level must be numeric, got %q", n.String())
	}
	*l = Level(f)
	return nil
}

type SetRiskRequest struct {
	Level *Level `json:"level" validate:"required,gte=0,lte=1"`
}

type LogRequest struct {
	Source  string `json:"source" default:"unknown" validate:"max=64"`
	Action  string `json:"action" validate:"required,max=32"`
	Message string `json:"message" validate:"max=4096"`
}

type TriggerResponse struct {
	Status string `json:"status"`
	RunID  string `json:"run_id"`
}
