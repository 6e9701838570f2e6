package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Event names emitted by the launchpad factory contract.
const (
	EventTokenCreated      = "TokenCreated"
	EventTokenBought       = "TokenBought"
	EventTokenSold         = "TokenSold"
	EventTokenGraduated    = "TokenGraduated"
	EventFeesCollected     = "FeesCollected"
	EventLiquidityLocked   = "LiquidityLocked"
	EventLiquidityReleased = "LiquidityReleased"
	EventMetricsSnapshot   = "MetricsSnapshot"
)

// TrackedEvents lists every event type the pipeline ingests, in subscription order.
var TrackedEvents = []string{
	EventTokenCreated,
	EventTokenBought,
	EventTokenSold,
	EventTokenGraduated,
	EventFeesCollected,
	EventLiquidityLocked,
	EventLiquidityReleased,
	EventMetricsSnapshot,
}

// ErrUnknownEvent is returned for logs whose topic0 is not part of the ABI.
var ErrUnknownEvent = errors.New("unknown event signature")

const launchpadABI = `[
 {"type":"event","name":"TokenCreated","anonymous":false,"inputs":[
  {"name":"token","type":"address","indexed":true},
  {"name":"creator","type":"address","indexed":true},
  {"name":"name","type":"string","indexed":false},
  {"name":"symbol","type":"string","indexed":false},
  {"name":"tokenId","type":"uint256","indexed":false},
  {"name":"metadata","type":"string","indexed":false},
  {"name":"timestamp","type":"uint256","indexed":false}]},
 {"type":"event","name":"TokenBought","anonymous":false,"inputs":[
  {"name":"token","type":"address","indexed":true},
  {"name":"buyer","type":"address","indexed":true},
  {"name":"ethIn","type":"uint256","indexed":false},
  {"name":"tokensOut","type":"uint256","indexed":false},
  {"name":"price","type":"uint256","indexed":false},
  {"name":"marketCap","type":"uint256","indexed":false},
  {"name":"timestamp","type":"uint256","indexed":false}]},
 {"type":"event","name":"TokenSold","anonymous":false,"inputs":[
  {"name":"token","type":"address","indexed":true},
  {"name":"seller","type":"address","indexed":true},
  {"name":"tokensIn","type":"uint256","indexed":false},
  {"name":"ethOut","type":"uint256","indexed":false},
  {"name":"price","type":"uint256","indexed":false},
  {"name":"marketCap","type":"uint256","indexed":false},
  {"name":"timestamp","type":"uint256","indexed":false}]},
 {"type":"event","name":"TokenGraduated","anonymous":false,"inputs":[
  {"name":"token","type":"address","indexed":true},
  {"name":"pool","type":"address","indexed":true},
  {"name":"liquidity","type":"uint256","indexed":false},
  {"name":"timestamp","type":"uint256","indexed":false}]},
 {"type":"event","name":"FeesCollected","anonymous":false,"inputs":[
  {"name":"token","type":"address","indexed":true},
  {"name":"platformFee","type":"uint256","indexed":false},
  {"name":"creatorFee","type":"uint256","indexed":false},
  {"name":"totalVolume","type":"uint256","indexed":false},
  {"name":"timestamp","type":"uint256","indexed":false}]},
 {"type":"event","name":"LiquidityLocked","anonymous":false,"inputs":[
  {"name":"lockId","type":"uint256","indexed":true},
  {"name":"token","type":"address","indexed":true},
  {"name":"locker","type":"address","indexed":true},
  {"name":"amount","type":"uint256","indexed":false},
  {"name":"duration","type":"uint256","indexed":false},
  {"name":"unlockTime","type":"uint256","indexed":false}]},
 {"type":"event","name":"LiquidityReleased","anonymous":false,"inputs":[
  {"name":"lockId","type":"uint256","indexed":true},
  {"name":"token","type":"address","indexed":true},
  {"name":"amount","type":"uint256","indexed":false}]},
 {"type":"event","name":"MetricsSnapshot","anonymous":false,"inputs":[
  {"name":"token","type":"address","indexed":true},
  {"name":"packedMetrics","type":"uint256","indexed":false},
  {"name":"marketCap","type":"uint256","indexed":false},
  {"name":"timestamp","type":"uint256","indexed":false}]}
]`

// Event is a raw contract log normalised to event name plus ordered arguments.
// Backfill and live subscription both produce this shape.
type Event struct {
	Name        string
	Args        []any // ABI input order; addresses as common.Address, uints as *big.Int
	BlockNumber uint64
	TxHash      string
	LogIndex    uint
	Removed     bool // log was reverted by a reorg
}

// Contract binds the launchpad ABI to a deployed address.
type Contract struct {
	address common.Address
	abi     abi.ABI
}

// NewContract parses the launchpad ABI for the contract at address.
func NewContract(address string) (*Contract, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid contract address %q", address)
	}
	parsed, err := abi.JSON(strings.NewReader(launchpadABI))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	return &Contract{address: common.HexToAddress(address), abi: parsed}, nil
}

// Address returns the contract address.
func (c *Contract) Address() common.Address {
	return c.address
}

// Filter returns the log filter for one event name.
func (c *Contract) Filter(name string) (LogFilter, error) {
	ev, ok := c.abi.Events[name]
	if !ok {
		return LogFilter{}, fmt.Errorf("%w: %s", ErrUnknownEvent, name)
	}
	return LogFilter{Address: c.address, Topic: ev.ID}, nil
}

// Normalize converts a raw log into an Event with ordered arguments.
func (c *Contract) Normalize(lg types.Log) (Event, error) {
	out := Event{
		BlockNumber: lg.BlockNumber,
		TxHash:      lg.TxHash.Hex(),
		LogIndex:    lg.Index,
		Removed:     lg.Removed,
	}
	if len(lg.Topics) == 0 {
		return out, fmt.Errorf("%w: log has no topics", ErrUnknownEvent)
	}

	ev, err := c.abi.EventByID(lg.Topics[0])
	if err != nil {
		return out, fmt.Errorf("%w: %s", ErrUnknownEvent, lg.Topics[0].Hex())
	}
	out.Name = ev.Name

	var indexed abi.Arguments
	for _, in := range ev.Inputs {
		if in.Indexed {
			indexed = append(indexed, in)
		}
	}
	if len(lg.Topics)-1 != len(indexed) {
		return out, fmt.Errorf("%s: expected %d indexed topics, got %d", ev.Name, len(indexed), len(lg.Topics)-1)
	}

	values := make(map[string]any, len(ev.Inputs))
	if err := abi.ParseTopicsIntoMap(values, indexed, lg.Topics[1:]); err != nil {
		return out, fmt.Errorf("%s: parse topics: %w", ev.Name, err)
	}
	if err := ev.Inputs.NonIndexed().UnpackIntoMap(values, lg.Data); err != nil {
		return out, fmt.Errorf("%s: unpack data: %w", ev.Name, err)
	}

	out.Args = make([]any, len(ev.Inputs))
	for i, in := range ev.Inputs {
		out.Args[i] = values[in.Name]
	}
	return out, nil
}

// EncodeLog builds a raw log for the named event from ordered arguments.
// It is the inverse of Normalize and is used by fixtures and local tooling.
func (c *Contract) EncodeLog(name string, blockNumber uint64, txHash common.Hash, logIndex uint, args ...any) (types.Log, error) {
	ev, ok := c.abi.Events[name]
	if !ok {
		return types.Log{}, fmt.Errorf("%w: %s", ErrUnknownEvent, name)
	}
	if len(args) != len(ev.Inputs) {
		return types.Log{}, fmt.Errorf("%s: expected %d args, got %d", name, len(ev.Inputs), len(args))
	}

	topics := []common.Hash{ev.ID}
	var data []any
	for i, in := range ev.Inputs {
		if !in.Indexed {
			data = append(data, args[i])
			continue
		}
		t, err := abi.MakeTopics([]any{args[i]})
		if err != nil {
			return types.Log{}, fmt.Errorf("%s: topic %s: %w", name, in.Name, err)
		}
		topics = append(topics, t[0][0])
	}

	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		return types.Log{}, fmt.Errorf("%s: pack: %w", name, err)
	}

	return types.Log{
		Address:     c.address,
		Topics:      topics,
		Data:        packed,
		BlockNumber: blockNumber,
		TxHash:      txHash,
		Index:       logIndex,
	}, nil
}
