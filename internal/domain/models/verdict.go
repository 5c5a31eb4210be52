package models

// Signal is the trading action carried by a verdict or vote.
type Signal string

const (
	SignalBuy     Signal = "BUY"
	SignalSell    Signal = "SELL"
	SignalWait    Signal = "WAIT"
	SignalError   Signal = "ERROR"
	SignalNeutral Signal = "NEUTRAL"
)

// Verdict is the final decision returned to a paying caller.
type Verdict struct {
	Signal     Signal  `json:"signal"`
	Confidence float64 `json:"confidence"` // 0..100
	Reasoning  string  `json:"reasoning"`
}

// OracleUnavailable is the sentinel verdict meaning the oracle had no usable answer.
var OracleUnavailable = Verdict{Signal: SignalWait, Confidence: 0, Reasoning: "Oracle offline"}

// IsUnavailable reports whether v carries the unavailability sentinel.
func (v Verdict) IsUnavailable() bool { return v.Confidence == 0 }

// RiskMode labels how much weight the classifier gets over the rule.
type RiskMode string

const (
	RiskDegen    RiskMode = "DEGEN"
	RiskBalanced RiskMode = "BALANCED"
	RiskSafe     RiskMode = "SAFE"
)

// RiskModeFor maps a classifier weight in [0,1] to its label.
func RiskModeFor(weight float64) RiskMode {
	switch {
	case weight >= 0.8:
		return RiskDegen
	case weight <= 0.3:
		return RiskSafe
	default:
		return RiskBalanced
	}
}
