package metrics

import (
	"sort"

	"github.com/shopspring/decimal"

	"launchpad-indexer/internal/domain"
)

var (
	hundred = decimal.NewFromInt(100)
	// neutralBuyPressure is reported when there is no trade history.
	neutralBuyPressure = decimal.NewFromInt(50)
)

// Input is the persisted state one token's rolling metrics are computed from.
type Input struct {
	Token string
	Now   int64 // ms

	// Trades are the trades within the window ending at Now, in any order.
	Trades []*domain.Trade

	// PriceAgo is the latest trade at or before the window start. May be nil.
	PriceAgo *domain.Trade

	// Snapshot is the latest on-chain metrics snapshot. May be nil.
	Snapshot *domain.MetricsSnapshot
}

// Compute calculates rolling metrics for one token.
// It is pure: the same input always yields the same metrics.
func Compute(in Input) *domain.TokenMetrics {
	m := &domain.TokenMetrics{
		TokenAddress:   in.Token,
		Price:          decimal.Zero,
		PriceChange24h: decimal.Zero,
		Volume24h:      decimal.Zero,
		Liquidity:      decimal.Zero,
		MarketCap:      decimal.Zero,
		BuyPressure:    neutralBuyPressure,
		UpdatedAt:      in.Now,
	}

	if in.Snapshot != nil {
		m.Price = in.Snapshot.Price
		m.Liquidity = in.Snapshot.Liquidity
		m.MarketCap = in.Snapshot.MarketCap
		m.HolderCount = int(in.Snapshot.HolderCount)
	}

	n := len(in.Trades)
	if n == 0 {
		return m
	}

	// Sort by (timestamp, block, log index) so ties resolve deterministically.
	trades := make([]*domain.Trade, n)
	copy(trades, in.Trades)
	sort.Slice(trades, func(i, j int) bool {
		a, b := trades[i], trades[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		if a.BlockNumber != b.BlockNumber {
			return a.BlockNumber < b.BlockNumber
		}
		return a.LogIndex < b.LogIndex
	})

	latest := trades[n-1]
	m.Price = latest.Price
	if !latest.MarketCap.IsZero() {
		m.MarketCap = latest.MarketCap
	}

	buys := 0
	traders := make(map[string]struct{}, n)
	for _, t := range trades {
		m.Volume24h = m.Volume24h.Add(t.AmountIn)
		if t.IsBuy() {
			buys++
		}
		traders[t.Trader] = struct{}{}
	}

	m.TradeCount24h = n
	m.UniqueTraders24h = len(traders)
	m.BuyPressure = decimal.NewFromInt(int64(buys)).Mul(hundred).DivRound(decimal.NewFromInt(int64(n)), 4)

	// Without a trade before the window, the first trade inside it is the reference.
	ago := trades[0].Price
	if in.PriceAgo != nil {
		ago = in.PriceAgo.Price
	}
	m.PriceChange24h = priceChange(ago, m.Price)

	return m
}

// priceChange returns the percentage change from ago to now, or zero when
// ago is zero.
func priceChange(ago, now decimal.Decimal) decimal.Decimal {
	if ago.IsZero() {
		return decimal.Zero
	}
	return now.Sub(ago).Mul(hundred).DivRound(ago, 4)
}
