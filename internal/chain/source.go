package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// LogFilter selects logs emitted by one contract for one event signature.
type LogFilter struct {
	Address common.Address
	Topic   common.Hash // event signature (topic0)
}

// RPCClient defines the EVM JSON-RPC HTTP interface used for historical reads.
type RPCClient interface {
	// BlockNumber returns the current chain head.
	BlockNumber(ctx context.Context) (uint64, error)

	// GetLogs returns logs in [from, to] matching the filter.
	GetLogs(ctx context.Context, from, to uint64, filter LogFilter) ([]types.Log, error)
}

// WSClient defines the EVM WebSocket subscription interface.
type WSClient interface {
	// SubscribeLogs subscribes to new logs matching the filter.
	// The channel is closed when the client is closed.
	SubscribeLogs(ctx context.Context, filter LogFilter) (<-chan types.Log, error)

	// Close closes the WebSocket connection.
	Close() error
}
