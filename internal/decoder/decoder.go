// Package decoder maps normalised contract logs to typed domain events.
package decoder

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"launchpad-indexer/internal/chain"
	"launchpad-indexer/internal/domain"
)

// Decode maps one normalised log to exactly one domain event.
// All failures are returned as *Error.
func Decode(ev chain.Event) (domain.Event, error) {
	out, err := decode(ev)
	if err != nil {
		return nil, &Error{
			Event:    ev.Name,
			Block:    ev.BlockNumber,
			TxHash:   ev.TxHash,
			LogIndex: ev.LogIndex,
			Err:      err,
		}
	}
	return out, nil
}

func decode(ev chain.Event) (domain.Event, error) {
	a := args{ev: ev}
	base := domain.At(ev.BlockNumber, strings.ToLower(ev.TxHash), ev.LogIndex)

	switch ev.Name {
	case chain.EventTokenCreated:
		a.want(7)
		t := domain.Token{
			Address:      a.address(0),
			Creator:      a.address(1),
			Name:         a.str(2),
			Symbol:       a.str(3),
			TokenID:      a.int64At(4),
			Metadata:     a.str(5),
			CreatedAt:    a.seconds(6),
			CreatedBlock: ev.BlockNumber,
		}
		if a.err != nil {
			return nil, a.err
		}
		return &domain.TokenCreatedEvent{EventBase: base, Token: t}, nil

	case chain.EventTokenBought, chain.EventTokenSold:
		a.want(7)
		side := domain.TradeSideBuy
		if ev.Name == chain.EventTokenSold {
			side = domain.TradeSideSell
		}
		t := domain.Trade{
			TokenAddress: a.address(0),
			Trader:       a.address(1),
			Side:         side,
			AmountIn:     a.units(2, EthDecimals),
			AmountOut:    a.units(3, EthDecimals),
			Price:        a.units(4, EthDecimals),
			MarketCap:    a.units(5, MarketCapDecimals),
			Timestamp:    a.seconds(6),
			BlockNumber:  ev.BlockNumber,
			TxHash:       base.Pos.TxHash,
			LogIndex:     ev.LogIndex,
		}
		if a.err != nil {
			return nil, a.err
		}
		return &domain.TradeEvent{EventBase: base, Trade: t}, nil

	case chain.EventTokenGraduated:
		a.want(4)
		e := &domain.TokenGraduatedEvent{
			EventBase:    base,
			TokenAddress: a.address(0),
			PoolAddress:  a.address(1),
			Liquidity:    a.units(2, EthDecimals),
			Timestamp:    a.seconds(3),
		}
		if a.err != nil {
			return nil, a.err
		}
		return e, nil

	case chain.EventFeesCollected:
		a.want(5)
		f := domain.FeeCollection{
			TokenAddress: a.address(0),
			PlatformFee:  a.units(1, EthDecimals),
			CreatorFee:   a.units(2, EthDecimals),
			TotalVolume:  a.units(3, EthDecimals),
			Timestamp:    a.seconds(4),
			BlockNumber:  ev.BlockNumber,
			TxHash:       base.Pos.TxHash,
			LogIndex:     ev.LogIndex,
		}
		if a.err != nil {
			return nil, a.err
		}
		return &domain.FeesCollectedEvent{EventBase: base, Fee: f}, nil

	case chain.EventLiquidityLocked:
		a.want(6)
		duration := a.int64At(4)
		unlockMs := a.seconds(5)
		if a.err == nil && duration > unlockMs/1000 {
			a.err = fmt.Errorf("lock duration %ds exceeds unlock time %ds", duration, unlockMs/1000)
		}
		l := domain.LiquidityLock{
			LockID:       a.bigAt(0).String(),
			TokenAddress: a.address(1),
			Locker:       a.address(2),
			Amount:       a.units(3, EthDecimals),
			Duration:     duration,
			UnlockTime:   unlockMs,
			CreatedAt:    unlockMs - duration*1000,
			BlockNumber:  ev.BlockNumber,
			TxHash:       base.Pos.TxHash,
		}
		if a.err != nil {
			return nil, a.err
		}
		return &domain.LiquidityLockedEvent{EventBase: base, Lock: l}, nil

	case chain.EventLiquidityReleased:
		a.want(3)
		r := domain.LiquidityRelease{
			LockID:       a.bigAt(0).String(),
			TokenAddress: a.address(1),
			Amount:       a.units(2, EthDecimals),
		}
		if a.err != nil {
			return nil, a.err
		}
		return &domain.LiquidityReleasedEvent{EventBase: base, Release: r}, nil

	case chain.EventMetricsSnapshot:
		a.want(4)
		packed := a.bigAt(1)
		if a.err != nil {
			return nil, a.err
		}
		m, err := UnpackMetrics(packed)
		if err != nil {
			return nil, err
		}
		s := domain.MetricsSnapshot{
			TokenAddress:  a.address(0),
			Price:         ToDecimal(new(big.Int).SetUint64(m.Price), PackedDecimals),
			Volume24h:     ToDecimal(new(big.Int).SetUint64(m.Volume24h), PackedDecimals),
			HolderCount:   m.Holders,
			TradeCount24h: m.Trades24h,
			Liquidity:     ToDecimal(new(big.Int).SetUint64(m.Liquidity), PackedDecimals),
			MarketCap:     a.units(2, MarketCapDecimals),
			Timestamp:     a.seconds(3),
			BlockNumber:   ev.BlockNumber,
			TxHash:        base.Pos.TxHash,
			LogIndex:      ev.LogIndex,
		}
		if a.err != nil {
			return nil, a.err
		}
		return &domain.MetricsSnapshotEvent{EventBase: base, Snapshot: s}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedEvent, ev.Name)
}

// args reads typed arguments and keeps the first error.
type args struct {
	ev  chain.Event
	err error
}

func (a *args) want(n int) {
	if a.err == nil && len(a.ev.Args) != n {
		a.err = fmt.Errorf("expected %d args, got %d", n, len(a.ev.Args))
	}
}

func (a *args) at(i int) any {
	if a.err != nil || i >= len(a.ev.Args) {
		return nil
	}
	return a.ev.Args[i]
}

func (a *args) address(i int) string {
	v := a.at(i)
	if a.err != nil {
		return ""
	}
	addr, ok := v.(common.Address)
	if !ok {
		a.err = fmt.Errorf("arg %d: expected address, got %T", i, v)
		return ""
	}
	return strings.ToLower(addr.Hex())
}

func (a *args) str(i int) string {
	v := a.at(i)
	if a.err != nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		a.err = fmt.Errorf("arg %d: expected string, got %T", i, v)
		return ""
	}
	return s
}

func (a *args) bigAt(i int) *big.Int {
	v := a.at(i)
	if a.err != nil {
		return new(big.Int)
	}
	b, ok := v.(*big.Int)
	if !ok || b == nil {
		a.err = fmt.Errorf("arg %d: expected uint256, got %T", i, v)
		return new(big.Int)
	}
	if b.Sign() < 0 {
		a.err = fmt.Errorf("arg %d: negative value %s", i, b)
		return new(big.Int)
	}
	return b
}

func (a *args) int64At(i int) int64 {
	b := a.bigAt(i)
	if a.err != nil {
		return 0
	}
	if !b.IsInt64() {
		a.err = fmt.Errorf("arg %d: %s overflows int64", i, b)
		return 0
	}
	return b.Int64()
}

// seconds reads a unix-seconds argument and returns milliseconds.
func (a *args) seconds(i int) int64 {
	s := a.int64At(i)
	if a.err != nil {
		return 0
	}
	if s > math.MaxInt64/1000 {
		a.err = fmt.Errorf("arg %d: timestamp %d out of range", i, s)
		return 0
	}
	return s * 1000
}

func (a *args) units(i int, decimals int32) decimal.Decimal {
	return ToDecimal(a.bigAt(i), decimals)
}
