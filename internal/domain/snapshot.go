package domain

import "github.com/shopspring/decimal"

// DailySnapshot is the per-token OHLC row for one UTC calendar date.
// Corresponds to daily_snapshots table in PostgreSQL, unique per (token, date).
type DailySnapshot struct {
	TokenAddress string          `json:"token"`
	Date         string          `json:"date"` // YYYY-MM-DD (UTC)
	Open         decimal.Decimal `json:"open"`
	High         decimal.Decimal `json:"high"`
	Low          decimal.Decimal `json:"low"`
	Close        decimal.Decimal `json:"close"`
	Volume       decimal.Decimal `json:"volume"`
	TradeCount   int             `json:"tradeCount"`
	HolderCount  int             `json:"holderCount"`
	OpenTime     int64           `json:"openTime"`  // timestamp of the trade that set Open (ms)
	CloseTime    int64           `json:"closeTime"` // timestamp of the trade that set Close (ms)
	UpdatedAt    int64           `json:"updatedAt"`
}

// DateLayout is the layout of DailySnapshot.Date.
const DateLayout = "2006-01-02"

// MetricsSnapshot is the unpacked on-chain periodic metrics snapshot for a token.
// Stored in ClickHouse metrics_snapshots.
type MetricsSnapshot struct {
	TokenAddress  string          `json:"token"`
	Price         decimal.Decimal `json:"price"`
	Volume24h     decimal.Decimal `json:"volume24h"`
	HolderCount   uint32          `json:"holderCount"`
	TradeCount24h uint32          `json:"tradeCount24h"`
	Liquidity     decimal.Decimal `json:"liquidity"`
	MarketCap     decimal.Decimal `json:"marketCap"`
	Timestamp     int64           `json:"timestamp"` // ms
	BlockNumber   uint64          `json:"blockNumber"`
	TxHash        string          `json:"txHash"`
	LogIndex      uint            `json:"logIndex"`
}
