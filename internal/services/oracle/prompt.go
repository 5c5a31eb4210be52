package oracle

import (
	"fmt"
	"strings"

	"X402/internal/domain/models"
)

const systemPrompt = "You are a crypto trading node. Reply with a single JSON object and nothing else."

// BuildPrompt renders the decision snapshot as the user prompt.
func BuildPrompt(s models.DecisionSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze %s.\n\n", s.Asset)
	fmt.Fprintf(&b, "- Classifier: %s (%.1f%%)\n", s.Classifier.Signal, s.Classifier.Confidence)
	fmt.Fprintf(&b, "- RSI: %.2f\n", s.Market.RSI)
	fmt.Fprintf(&b, "- Momentum: %.4f\n", s.Market.Momentum)
	fmt.Fprintf(&b, "- Volatility: %.4f\n", s.Market.Volatility)
	fmt.Fprintf(&b, "- Risk mode: %s\n\n", s.RiskMode)
	fmt.Fprintf(&b, "News: %q\n\n", s.News)
	b.WriteString("Decide BUY, SELL or WAIT. Negative news (hacks, bans, enforcement) biases towards SELL or WAIT; ")
	b.WriteString("positive news (ETF flows, adoption) biases towards BUY. News may override technicals.\n\n")
	b.WriteString(`Reply with JSON only: {"signal": "BUY", "confidence": 80, "reasoning": "short reason"}`)
	return b.String()
}
