package hub

import (
	"strings"

	"launchpad-indexer/internal/domain"
)

// Topic names.
const (
	TopicAll         = "all"
	TopicTrades      = "trades"
	TopicTokens      = "tokens"
	TopicGraduations = "graduations"
	TopicFees        = "fees"
	TopicLiquidity   = "liquidity"
	TopicMetrics     = "metrics"
)

func tokenTopic(a string) string   { return "token:" + strings.ToLower(a) }
func traderTopic(a string) string  { return "trader:" + strings.ToLower(a) }
func creatorTopic(a string) string { return "creator:" + strings.ToLower(a) }
func lockerTopic(a string) string  { return "locker:" + strings.ToLower(a) }

// Topics returns the topic set an event is delivered to, excluding TopicAll.
func Topics(ev domain.Event) []string {
	switch e := ev.(type) {
	case *domain.TradeEvent:
		return []string{TopicTrades, tokenTopic(e.Trade.TokenAddress), traderTopic(e.Trade.Trader)}
	case *domain.TokenCreatedEvent:
		return []string{TopicTokens, tokenTopic(e.Token.Address), creatorTopic(e.Token.Creator)}
	case *domain.TokenGraduatedEvent:
		return []string{TopicGraduations, tokenTopic(e.TokenAddress)}
	case *domain.FeesCollectedEvent:
		return []string{TopicFees, tokenTopic(e.Fee.TokenAddress)}
	case *domain.LiquidityLockedEvent:
		return []string{TopicLiquidity, tokenTopic(e.Lock.TokenAddress), lockerTopic(e.Lock.Locker)}
	case *domain.LiquidityReleasedEvent:
		return []string{TopicLiquidity, tokenTopic(e.Release.TokenAddress)}
	case *domain.MetricsSnapshotEvent:
		return []string{TopicMetrics, tokenTopic(e.Snapshot.TokenAddress)}
	case *domain.MetricsUpdateEvent:
		return []string{TopicMetrics, tokenTopic(e.Metrics.TokenAddress)}
	}
	return nil
}

// normalizeTopic lower-cases a client supplied topic.
func normalizeTopic(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
