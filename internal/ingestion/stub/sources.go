// Package stub provides an in-memory EVM log source for tests.
package stub

import (
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/core/types"

	"launchpad-indexer/internal/chain"
)

// Range is one GetLogs call.
type Range struct {
	From, To uint64
	Filter   chain.LogFilter
}

// Chain returns fixed in-memory logs. Implements chain.RPCClient and chain.WSClient.
// Logs can be added out of order; GetLogs returns them in chain order.
type Chain struct {
	mu       sync.Mutex
	head     uint64
	logs     []types.Log
	calls    []Range
	failures int
	failErr  error
	subs     []subscription
	closed   bool

	// OnGetLogs, when set, is called after each successful GetLogs.
	OnGetLogs func(r Range)
}

type subscription struct {
	filter chain.LogFilter
	ch     chan types.Log
}

// NewChain creates an empty chain.
func NewChain() *Chain {
	return &Chain{}
}

// AddLogs appends historical logs and raises the head to the highest block.
func (c *Chain) AddLogs(logs ...types.Log) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, lg := range logs {
		c.logs = append(c.logs, lg)
		if lg.BlockNumber > c.head {
			c.head = lg.BlockNumber
		}
	}
}

// SetHead sets the chain head.
func (c *Chain) SetHead(head uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head = head
}

// FailGetLogs makes the next n GetLogs calls return err.
func (c *Chain) FailGetLogs(n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = n
	c.failErr = err
}

// Calls returns the successful GetLogs calls so far.
func (c *Chain) Calls() []Range {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Range, len(c.calls))
	copy(out, c.calls)
	return out
}

// BlockNumber implements chain.RPCClient.
func (c *Chain) BlockNumber(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head, nil
}

// GetLogs implements chain.RPCClient.
func (c *Chain) GetLogs(_ context.Context, from, to uint64, filter chain.LogFilter) ([]types.Log, error) {
	c.mu.Lock()
	if c.failures > 0 {
		c.failures--
		err := c.failErr
		c.mu.Unlock()
		return nil, err
	}

	var result []types.Log
	for _, lg := range c.logs {
		if lg.BlockNumber >= from && lg.BlockNumber <= to && matches(lg, filter) {
			result = append(result, lg)
		}
	}
	r := Range{From: from, To: to, Filter: filter}
	c.calls = append(c.calls, r)
	hook := c.OnGetLogs
	c.mu.Unlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].BlockNumber != result[j].BlockNumber {
			return result[i].BlockNumber < result[j].BlockNumber
		}
		return result[i].Index < result[j].Index
	})

	if hook != nil {
		hook(r)
	}
	return result, nil
}

// SubscribeLogs implements chain.WSClient.
func (c *Chain) SubscribeLogs(_ context.Context, filter chain.LogFilter) (<-chan types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan types.Log, 1024)
	c.subs = append(c.subs, subscription{filter: filter, ch: ch})
	return ch, nil
}

// Emit delivers a log to matching live subscriptions.
func (c *Chain) Emit(lg types.Log) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for _, s := range c.subs {
		if matches(lg, s.filter) {
			s.ch <- lg
		}
	}
}

// Close implements chain.WSClient.
func (c *Chain) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for _, s := range c.subs {
		close(s.ch)
	}
	return nil
}

func matches(lg types.Log, filter chain.LogFilter) bool {
	return lg.Address == filter.Address && len(lg.Topics) > 0 && lg.Topics[0] == filter.Topic
}

var (
	_ chain.RPCClient = (*Chain)(nil)
	_ chain.WSClient  = (*Chain)(nil)
)
