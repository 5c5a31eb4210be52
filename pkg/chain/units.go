package chain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// NativeDecimals is the decimals of the chain's gas coin.
const NativeDecimals = 18

// ToMinorUnits converts a major-unit amount to integer base units,
// truncating anything finer than decimals.
func ToMinorUnits(major decimal.Decimal, decimals int32) *big.Int {
	return major.Shift(decimals).Truncate(0).BigInt()
}

// FromMinorUnits converts integer base units to a major-unit decimal.
func FromMinorUnits(minor *big.Int, decimals int32) decimal.Decimal {
	if minor == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(minor, -decimals)
}
