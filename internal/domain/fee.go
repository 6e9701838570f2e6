package domain

import "github.com/shopspring/decimal"

// FeeCollection is an append-only fee collection fact.
// Corresponds to fee_collections table in PostgreSQL, unique per (tx_hash, log_index).
type FeeCollection struct {
	ID           int64           `json:"-"`
	TokenAddress string          `json:"token"`
	PlatformFee  decimal.Decimal `json:"platformFee"`
	CreatorFee   decimal.Decimal `json:"creatorFee"`
	TotalVolume  decimal.Decimal `json:"totalVolume"`
	BlockNumber  uint64          `json:"blockNumber"`
	TxHash       string          `json:"txHash"`
	LogIndex     uint            `json:"logIndex"`
	Timestamp    int64           `json:"timestamp"` // ms
}
