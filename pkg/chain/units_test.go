package chain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1_000_000), ToMinorUnits(decimal.RequireFromString("1.0"), 6).Int64())
	assert.Equal(t, int64(250_000), ToMinorUnits(decimal.RequireFromString("0.25"), 6).Int64())
	// finer than the token precision is truncated
	assert.Equal(t, int64(1), ToMinorUnits(decimal.RequireFromString("0.0000019"), 6).Int64())

	assert.Equal(t, "1.5", FromMinorUnits(big.NewInt(1_500_000), 6).String())
	assert.True(t, FromMinorUnits(nil, 6).IsZero())
}
