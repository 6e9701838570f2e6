package ingestion

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"launchpad-indexer/internal/chain"
	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/ingestion/stub"
	"launchpad-indexer/internal/storage"
	"launchpad-indexer/internal/storage/memory"
	"launchpad-indexer/internal/writer"
)

const contractAddress = "0x00000000000000000000000000000000000000c0"

var (
	tokenA = common.HexToAddress("0x01")
	trader = common.HexToAddress("0x02")
)

func newTestContract(t *testing.T) *chain.Contract {
	t.Helper()
	c, err := chain.NewContract(contractAddress)
	if err != nil {
		t.Fatalf("NewContract: %v", err)
	}
	return c
}

func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

func txHash(block uint64, logIndex uint) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(block*1000 + uint64(logIndex)))
}

// boughtLog builds a TokenBought log for tokenA.
func boughtLog(t *testing.T, c *chain.Contract, block uint64, logIndex uint, ethIn int64) types.Log {
	t.Helper()
	lg, err := c.EncodeLog(chain.EventTokenBought, block, txHash(block, logIndex), logIndex,
		tokenA, trader, units(ethIn), units(1), units(1), big.NewInt(100_000_000), big.NewInt(1_700_000_000+int64(block)))
	if err != nil {
		t.Fatalf("EncodeLog: %v", err)
	}
	return lg
}

// createdLog builds a TokenCreated log for tokenA.
func createdLog(t *testing.T, c *chain.Contract, block uint64, logIndex uint) types.Log {
	t.Helper()
	lg, err := c.EncodeLog(chain.EventTokenCreated, block, txHash(block, logIndex), logIndex,
		tokenA, trader, "Foo", "FOO", big.NewInt(1), "{}", big.NewInt(1_700_000_000))
	if err != nil {
		t.Fatalf("EncodeLog: %v", err)
	}
	return lg
}

// recordingSink records every event it receives.
type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingSink) Handle(_ context.Context, ev domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingSink) blocks() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint64, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Position().BlockNumber
	}
	return out
}

// recordingCheckpoint records every saved value.
type recordingCheckpoint struct {
	storage.CheckpointStore
	mu    sync.Mutex
	saved []uint64
}

func (r *recordingCheckpoint) Save(ctx context.Context, block uint64) error {
	r.mu.Lock()
	r.saved = append(r.saved, block)
	r.mu.Unlock()
	return r.CheckpointStore.Save(ctx, block)
}

func (r *recordingCheckpoint) values() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.saved...)
}

// harness wires a stub chain to memory stores through the writer.
type harness struct {
	chain      *stub.Chain
	contract   *chain.Contract
	stores     *storage.Stores
	checkpoint *recordingCheckpoint
	broadcast  *recordingSink
	dispatcher *Dispatcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	stores := memory.NewStores()
	cp := &recordingCheckpoint{CheckpointStore: stores.Checkpoint}
	broadcast := &recordingSink{}
	return &harness{
		chain:      stub.NewChain(),
		contract:   newTestContract(t),
		stores:     stores,
		checkpoint: cp,
		broadcast:  broadcast,
		dispatcher: NewDispatcher(writer.New(stores), broadcast),
	}
}

func (h *harness) backfiller(opts BackfillOptions) *Backfiller {
	opts.RPC = h.chain
	opts.Contract = h.contract
	opts.Checkpoint = h.checkpoint
	if opts.Dispatcher == nil {
		opts.Dispatcher = h.dispatcher
	}
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = time.Millisecond
		opts.MaxBackoff = 5 * time.Millisecond
	}
	return NewBackfiller(opts)
}

func (h *harness) tradeCount(t *testing.T) int {
	t.Helper()
	trades, err := h.stores.Trades.GetByToken(context.Background(), strings.ToLower(tokenA.Hex()))
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	return len(trades)
}
