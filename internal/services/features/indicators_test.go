package features

import (
	"math"
	"testing"
	"time"

	"X402/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeLogReturns(t *testing.T) {
	got := ComputeLogReturns([]float64{100, 110, 0, 121})
	require.Len(t, got, 3)
	assert.InDelta(t, math.Log(1.1), got[0], 1e-12)
	assert.Equal(t, 0.0, got[1])
	assert.Equal(t, 0.0, got[2])
	assert.Nil(t, ComputeLogReturns([]float64{1}))
}

func TestSampleVolatility(t *testing.T) {
	// sample std of 1..4 is sqrt(5/3)
	rets := []float64{9, 9, 1, 2, 3, 4}
	assert.InDelta(t, math.Sqrt(5.0/3.0), SampleVolatility(rets, 4), 1e-9)
	assert.Equal(t, 0.0, SampleVolatility(rets[:2], 4))
}

func TestSimpleRSI(t *testing.T) {
	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 10
	}
	assert.Equal(t, 50.0, SimpleRSI(flat, 14))

	up := make([]float64, 20)
	for i := range up {
		up[i] = float64(i + 1)
	}
	assert.Equal(t, 100.0, SimpleRSI(up, 14))

	// alternating +2 / -1 over 14 diffs: avg gain 1, avg loss 0.5, RS 2
	alt := []float64{100}
	for i := 0; i < 14; i++ {
		step := 2.0
		if i%2 == 1 {
			step = -1
		}
		alt = append(alt, alt[len(alt)-1]+step)
	}
	assert.InDelta(t, 100-100/3.0, SimpleRSI(alt, 14), 1e-9)
}

func TestMomentum(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100
	}
	closes[49] = 150 // SMA = 101
	assert.InDelta(t, 49.0/101.0, Momentum(closes, 50), 1e-12)
}

func TestSnapshot(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, MinCloses)
	for i := range candles {
		candles[i] = models.Candle{Bucket: start.Add(time.Duration(i) * 15 * time.Minute), Close: 100 + float64(i%3)}
	}

	s, err := Snapshot("BTC-USD", candles)
	require.NoError(t, err)
	assert.Equal(t, candles[len(candles)-1].Close, s.Price)
	assert.Equal(t, candles[len(candles)-1].Bucket, s.At)
	assert.Greater(t, s.Volatility, 0.0)
	assert.True(t, s.RSI >= 0 && s.RSI <= 100)
	assert.Equal(t, []float64{s.LogReturn, s.Volatility, s.RSI, s.Momentum}, s.Features())

	_, err = Snapshot("BTC-USD", candles[:MinCloses-1])
	assert.ErrorIs(t, err, models.ErrNoSnapshot)
}
