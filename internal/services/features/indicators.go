package features

import (
	"fmt"
	"math"

	"X402/internal/domain/models"

	"github.com/markcheno/go-talib"
)

const (
	VolatilityWindow = 20
	RSIWindow        = 14
	MomentumWindow   = 50
	// MinCloses is the history needed for every feature on the last bar.
	MinCloses = MomentumWindow + 1
)

// ComputeLogReturns computes r_t = ln(C_t / C_{t-1}). Non-positive prices
// yield 0 for that step.
func ComputeLogReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev, cur := closes[i-1], closes[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// SampleVolatility is the sample standard deviation of the last window returns.
func SampleVolatility(logReturns []float64, window int) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	tail := logReturns[len(logReturns)-window:]
	std := talib.StdDev(tail, window, 1)
	pop := std[len(std)-1]
	n := float64(window)
	return pop * math.Sqrt(n/(n-1))
}

// SimpleRSI is RSI with gains and losses averaged by a plain rolling mean
// over window bars. A flat window returns 50; no losses returns 100.
func SimpleRSI(closes []float64, window int) float64 {
	if window <= 0 || len(closes) < window+1 {
		return 50
	}
	tail := closes[len(closes)-window-1:]
	gains := make([]float64, window)
	losses := make([]float64, window)
	for i := 1; i < len(tail); i++ {
		d := tail[i] - tail[i-1]
		if d > 0 {
			gains[i-1] = d
		} else {
			losses[i-1] = -d
		}
	}
	avgGain := last(talib.Sma(gains, window))
	avgLoss := last(talib.Sma(losses, window))
	switch {
	case avgGain == 0 && avgLoss == 0:
		return 50
	case avgLoss == 0:
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Momentum is (C - SMA(window)) / SMA(window) on the last bar.
func Momentum(closes []float64, window int) float64 {
	if window <= 0 || len(closes) < window {
		return 0
	}
	sma := last(talib.Sma(closes[len(closes)-window:], window))
	if sma == 0 {
		return 0
	}
	return (closes[len(closes)-1] - sma) / sma
}

// Snapshot builds the feature row for the last candle.
func Snapshot(asset string, candles []models.Candle) (*models.MarketSnapshot, error) {
	if len(candles) < MinCloses {
		return nil, fmt.Errorf("%w: %s has %d closes, need %d", models.ErrNoSnapshot, asset, len(candles), MinCloses)
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	rets := ComputeLogReturns(closes)
	lastBar := candles[len(candles)-1]
	return &models.MarketSnapshot{
		Asset:      asset,
		Price:      lastBar.Close,
		LogReturn:  rets[len(rets)-1],
		Volatility: SampleVolatility(rets, VolatilityWindow),
		RSI:        SimpleRSI(closes, RSIWindow),
		Momentum:   Momentum(closes, MomentumWindow),
		At:         lastBar.Bucket,
	}, nil
}

func last(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return xs[len(xs)-1]
}
