package decoder

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Fixed-point scales. Scale is a property of the field, never inferred from the value.
const (
	// EthDecimals is the scale of ETH, token and price amounts.
	EthDecimals int32 = 18
	// MarketCapDecimals is the scale of market-cap amounts.
	MarketCapDecimals int32 = 8
	// PackedDecimals is the scale of the price, volume and liquidity sub-fields of packed metrics.
	PackedDecimals int32 = 8
)

// ToDecimal converts base units to a decimal with the given scale.
func ToDecimal(v *big.Int, decimals int32) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -decimals)
}

// FormatUnits renders base units as a decimal string with the given scale.
// FormatUnits(1500000000000000000, 18) == "1.5".
func FormatUnits(v *big.Int, decimals int32) string {
	return ToDecimal(v, decimals).String()
}
