package domain

import "github.com/shopspring/decimal"

// LiquidityLock represents locked graduation liquidity.
// Corresponds to liquidity_locks table in PostgreSQL. Only Released ever changes.
type LiquidityLock struct {
	LockID       string          `json:"lockId"` // uint256 lock id as decimal string (PK)
	TokenAddress string          `json:"token"`
	Locker       string          `json:"locker"`
	Amount       decimal.Decimal `json:"amount"`
	Duration     int64           `json:"duration"`   // seconds
	UnlockTime   int64           `json:"unlockTime"` // ms
	CreatedAt    int64           `json:"createdAt"`  // ms
	BlockNumber  uint64          `json:"blockNumber"`
	TxHash       string          `json:"txHash"`
	Released     bool            `json:"released"`
}

// LiquidityRelease carries the fields of a release.
type LiquidityRelease struct {
	LockID       string          `json:"lockId"`
	TokenAddress string          `json:"token"`
	Amount       decimal.Decimal `json:"amount"`
}
