package domain

import "github.com/shopspring/decimal"

// EventType identifies a decoded contract event (and the hub broadcast type).
type EventType string

// Event types
const (
	EventTokenCreated      EventType = "token_created"
	EventTrade             EventType = "trade"
	EventTokenGraduated    EventType = "token_graduated"
	EventFeesCollected     EventType = "fees_collected"
	EventLiquidityLocked   EventType = "liquidity_locked"
	EventLiquidityReleased EventType = "liquidity_released"
	EventMetricsSnapshot   EventType = "metrics_snapshot"
	EventMetricsUpdate     EventType = "metrics_update"
)

// Position locates an event on chain.
type Position struct {
	BlockNumber uint64 `json:"blockNumber"`
	TxHash      string `json:"txHash"`
	LogIndex    uint   `json:"logIndex"`
}

// Less orders positions by (block_number, log_index).
func (p Position) Less(q Position) bool {
	if p.BlockNumber != q.BlockNumber {
		return p.BlockNumber < q.BlockNumber
	}
	return p.LogIndex < q.LogIndex
}

// Event is a decoded, typed domain event.
// The set of variants is closed: every variant embeds EventBase.
type Event interface {
	Type() EventType
	Position() Position
	// Data returns the payload broadcast to clients.
	Data() any
	isEvent()
}

// EventBase carries the chain position shared by all events.
type EventBase struct {
	Pos Position
}

// At returns an EventBase for the given position.
func At(blockNumber uint64, txHash string, logIndex uint) EventBase {
	return EventBase{Pos: Position{BlockNumber: blockNumber, TxHash: txHash, LogIndex: logIndex}}
}

// Position returns the chain position of the event.
func (b EventBase) Position() Position { return b.Pos }

func (EventBase) isEvent() {}

// TokenCreatedEvent announces a new token.
type TokenCreatedEvent struct {
	EventBase
	Token Token
}

func (e *TokenCreatedEvent) Type() EventType { return EventTokenCreated }
func (e *TokenCreatedEvent) Data() any       { return e.Token }

// TradeEvent is a buy or sell.
type TradeEvent struct {
	EventBase
	Trade Trade
}

func (e *TradeEvent) Type() EventType { return EventTrade }
func (e *TradeEvent) Data() any       { return e.Trade }

// TokenGraduatedEvent marks a token's migration to a pool.
type TokenGraduatedEvent struct {
	EventBase
	TokenAddress string
	PoolAddress  string
	Liquidity    decimal.Decimal
	Timestamp    int64 // ms
}

func (e *TokenGraduatedEvent) Type() EventType { return EventTokenGraduated }

func (e *TokenGraduatedEvent) Data() any {
	return struct {
		Token       string          `json:"token"`
		Pool        string          `json:"pool"`
		Liquidity   decimal.Decimal `json:"liquidity"`
		Timestamp   int64           `json:"timestamp"`
		BlockNumber uint64          `json:"blockNumber"`
		TxHash      string          `json:"txHash"`
	}{e.TokenAddress, e.PoolAddress, e.Liquidity, e.Timestamp, e.Pos.BlockNumber, e.Pos.TxHash}
}

// Graduation returns the graduation update carried by the event.
func (e *TokenGraduatedEvent) Graduation() Graduation {
	return Graduation{
		TokenAddress: e.TokenAddress,
		PoolAddress:  e.PoolAddress,
		BlockNumber:  e.Pos.BlockNumber,
		Timestamp:    e.Timestamp,
	}
}

// FeesCollectedEvent is a fee collection.
type FeesCollectedEvent struct {
	EventBase
	Fee FeeCollection
}

func (e *FeesCollectedEvent) Type() EventType { return EventFeesCollected }
func (e *FeesCollectedEvent) Data() any       { return e.Fee }

// LiquidityLockedEvent creates a liquidity lock.
type LiquidityLockedEvent struct {
	EventBase
	Lock LiquidityLock
}

func (e *LiquidityLockedEvent) Type() EventType { return EventLiquidityLocked }
func (e *LiquidityLockedEvent) Data() any       { return e.Lock }

// LiquidityReleasedEvent releases a liquidity lock.
type LiquidityReleasedEvent struct {
	EventBase
	Release LiquidityRelease
}

func (e *LiquidityReleasedEvent) Type() EventType { return EventLiquidityReleased }
func (e *LiquidityReleasedEvent) Data() any       { return e.Release }

// MetricsSnapshotEvent carries an unpacked on-chain metrics snapshot.
type MetricsSnapshotEvent struct {
	EventBase
	Snapshot MetricsSnapshot
}

func (e *MetricsSnapshotEvent) Type() EventType { return EventMetricsSnapshot }
func (e *MetricsSnapshotEvent) Data() any       { return e.Snapshot }

// MetricsUpdateEvent is emitted by the aggregator, not by the chain.
type MetricsUpdateEvent struct {
	EventBase
	Metrics TokenMetrics
}

func (e *MetricsUpdateEvent) Type() EventType { return EventMetricsUpdate }
func (e *MetricsUpdateEvent) Data() any       { return e.Metrics }

// TokenAddressOf returns the token an event refers to.
func TokenAddressOf(ev Event) string {
	switch e := ev.(type) {
	case *TokenCreatedEvent:
		return e.Token.Address
	case *TradeEvent:
		return e.Trade.TokenAddress
	case *TokenGraduatedEvent:
		return e.TokenAddress
	case *FeesCollectedEvent:
		return e.Fee.TokenAddress
	case *LiquidityLockedEvent:
		return e.Lock.TokenAddress
	case *LiquidityReleasedEvent:
		return e.Release.TokenAddress
	case *MetricsSnapshotEvent:
		return e.Snapshot.TokenAddress
	case *MetricsUpdateEvent:
		return e.Metrics.TokenAddress
	}
	return ""
}
