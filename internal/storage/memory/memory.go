// Package memory provides in-memory implementations of every store.
// Used by tests and by the use_memory storage driver.
package memory

import "launchpad-indexer/internal/storage"

// NewStores returns a fresh set of in-memory stores.
func NewStores() *storage.Stores {
	return &storage.Stores{
		Tokens:     NewTokenStore(),
		Trades:     NewTradeStore(),
		Snapshots:  NewDailySnapshotStore(),
		Fees:       NewFeeCollectionStore(),
		Locks:      NewLiquidityLockStore(),
		Metrics:    NewTokenMetricsStore(),
		OnChain:    NewMetricsSnapshotStore(),
		History:    NewMetricsHistoryStore(),
		Checkpoint: NewCheckpointStore(),
	}
}
