package domain

import "github.com/shopspring/decimal"

// TokenMetrics is the derived rolling 24h view of a token.
// Corresponds to token_metrics table in PostgreSQL. Safe to drop and recompute.
type TokenMetrics struct {
	TokenAddress     string          `json:"token"`
	Price            decimal.Decimal `json:"price"`
	PriceChange24h   decimal.Decimal `json:"priceChange24h"` // percent
	Volume24h        decimal.Decimal `json:"volume24h"`
	Liquidity        decimal.Decimal `json:"liquidity"`
	MarketCap        decimal.Decimal `json:"marketCap"`
	HolderCount      int             `json:"holderCount"`
	TradeCount24h    int             `json:"tradeCount24h"`
	UniqueTraders24h int             `json:"uniqueTraders24h"`
	BuyPressure      decimal.Decimal `json:"buyPressure"` // percent of trades that were buys
	UpdatedAt        int64           `json:"updatedAt"`   // ms
}
