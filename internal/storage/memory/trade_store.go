package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.Trade // keyed by composite key
	nextID int64
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]*domain.Trade),
	}
}

// tradeKey generates a unique key for a trade.
func tradeKey(token, txHash string, logIndex uint) string {
	return fmt.Sprintf("%s|%s|%d", token, txHash, logIndex)
}

// Insert adds a new trade. Returns ErrDuplicateKey if exists.
func (s *TradeStore) Insert(_ context.Context, t *domain.Trade) error {
	if t == nil || t.TokenAddress == "" || t.TxHash == "" {
		return storage.ErrInvalidInput
	}

	key := tradeKey(t.TokenAddress, t.TxHash, t.LogIndex)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	s.nextID++
	copy := *t
	copy.ID = s.nextID
	s.data[key] = &copy
	return nil
}

// GetByToken retrieves all trades for a token in chronological order.
func (s *TradeStore) GetByToken(_ context.Context, token string) ([]*domain.Trade, error) {
	return s.filter(func(t *domain.Trade) bool { return t.TokenAddress == token }), nil
}

// GetByTimeRange retrieves trades for a token within [start, end] (inclusive).
func (s *TradeStore) GetByTimeRange(_ context.Context, token string, start, end int64) ([]*domain.Trade, error) {
	return s.filter(func(t *domain.Trade) bool {
		return t.TokenAddress == token && t.Timestamp >= start && t.Timestamp <= end
	}), nil
}

// GetLatestAtOrBefore retrieves the latest trade with timestamp <= ts.
func (s *TradeStore) GetLatestAtOrBefore(_ context.Context, token string, ts int64) (*domain.Trade, error) {
	trades := s.filter(func(t *domain.Trade) bool { return t.TokenAddress == token && t.Timestamp <= ts })
	if len(trades) == 0 {
		return nil, storage.ErrNotFound
	}
	return trades[len(trades)-1], nil
}

// GetActiveTokens returns distinct tokens with a trade at or after since.
func (s *TradeStore) GetActiveTokens(_ context.Context, since int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, t := range s.data {
		if t.Timestamp >= since {
			seen[t.TokenAddress] = struct{}{}
		}
	}

	result := make([]string, 0, len(seen))
	for token := range seen {
		result = append(result, token)
	}
	sort.Strings(result)
	return result, nil
}

// Count returns the number of stored trades.
func (s *TradeStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *TradeStore) filter(match func(*domain.Trade) bool) []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if match(t) {
			copy := *t
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		if result[i].BlockNumber != result[j].BlockNumber {
			return result[i].BlockNumber < result[j].BlockNumber
		}
		return result[i].LogIndex < result[j].LogIndex
	})

	return result
}

var _ storage.TradeStore = (*TradeStore)(nil)
