package domain

import "github.com/shopspring/decimal"

// Trade represents a single buy or sell against a bonding curve.
// Corresponds to trades table in PostgreSQL. Immutable once written.
type Trade struct {
	ID           int64           `json:"-"`                 // BIGSERIAL primary key
	TokenAddress string          `json:"token"`             // FK to tokens
	Trader       string          `json:"trader"`            // buyer or seller address
	Side         string          `json:"side"`              // "buy" | "sell"
	AmountIn     decimal.Decimal `json:"amountIn"`          // ETH for buys, tokens for sells
	AmountOut    decimal.Decimal `json:"amountOut"`         // tokens for buys, ETH for sells
	Price        decimal.Decimal `json:"price"`             // resulting price (ETH per token)
	MarketCap    decimal.Decimal `json:"marketCap"`         // resulting market cap
	Timestamp    int64           `json:"timestamp"`         // wall-clock time (ms)
	BlockNumber  uint64          `json:"blockNumber"`       // source block
	TxHash       string          `json:"txHash"`            // source transaction
	LogIndex     uint            `json:"logIndex"`          // position of the log in the block
	GasUsed      *uint64         `json:"gasUsed,omitempty"` // optional gas used
	CreatedAt    int64           `json:"-"`                 // record creation timestamp (ms)
}

// Trade side constants
const (
	TradeSideBuy  = "buy"
	TradeSideSell = "sell"
)

// IsBuy reports whether the trade bought tokens.
func (t *Trade) IsBuy() bool {
	return t.Side == TradeSideBuy
}
