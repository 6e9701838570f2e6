package decoder

import (
	"fmt"
	"math/big"
)

// Packed metrics bit layout (bit 0 is the least significant bit of the uint256).
//
//	255        192 191        128 127   96 95    64 63          0
//	|   price    |  volume24h   | holders | trades |  liquidity  |
const (
	PriceOffset     = 192
	PriceBits       = 64
	VolumeOffset    = 128
	VolumeBits      = 64
	HoldersOffset   = 96
	HoldersBits     = 32
	TradesOffset    = 64
	TradesBits      = 32
	LiquidityOffset = 0
	LiquidityBits   = 64
)

// PackedMetrics holds the raw sub-fields of a packed metrics word.
type PackedMetrics struct {
	Price     uint64 // PackedDecimals fixed point
	Volume24h uint64 // PackedDecimals fixed point
	Holders   uint32
	Trades24h uint32
	Liquidity uint64 // PackedDecimals fixed point
}

// UnpackMetrics splits a packed uint256 into its sub-fields.
func UnpackMetrics(packed *big.Int) (PackedMetrics, error) {
	if packed == nil {
		return PackedMetrics{}, fmt.Errorf("packed metrics: nil value")
	}
	if packed.Sign() < 0 || packed.BitLen() > 256 {
		return PackedMetrics{}, fmt.Errorf("packed metrics: value out of uint256 range")
	}
	return PackedMetrics{
		Price:     field(packed, PriceOffset, PriceBits),
		Volume24h: field(packed, VolumeOffset, VolumeBits),
		Holders:   uint32(field(packed, HoldersOffset, HoldersBits)),
		Trades24h: uint32(field(packed, TradesOffset, TradesBits)),
		Liquidity: field(packed, LiquidityOffset, LiquidityBits),
	}, nil
}

// PackMetrics is the exact inverse of UnpackMetrics.
func PackMetrics(m PackedMetrics) *big.Int {
	out := new(big.Int)
	out.Or(out, place(m.Price, PriceOffset))
	out.Or(out, place(m.Volume24h, VolumeOffset))
	out.Or(out, place(uint64(m.Holders), HoldersOffset))
	out.Or(out, place(uint64(m.Trades24h), TradesOffset))
	out.Or(out, place(m.Liquidity, LiquidityOffset))
	return out
}

func field(v *big.Int, offset, bits uint) uint64 {
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), bits), big.NewInt(1))
	return new(big.Int).And(new(big.Int).Rsh(v, offset), mask).Uint64()
}

func place(v uint64, offset uint) *big.Int {
	return new(big.Int).Lsh(new(big.Int).SetUint64(v), offset)
}
