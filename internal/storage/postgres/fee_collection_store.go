package postgres

import (
	"context"
	"fmt"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

// FeeCollectionStore implements storage.FeeCollectionStore using PostgreSQL.
type FeeCollectionStore struct {
	pool *Pool
}

// NewFeeCollectionStore creates a new FeeCollectionStore.
func NewFeeCollectionStore(pool *Pool) *FeeCollectionStore {
	return &FeeCollectionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FeeCollectionStore = (*FeeCollectionStore)(nil)

// Insert adds a fee collection. Returns ErrDuplicateKey if (tx_hash, log_index) exists.
func (s *FeeCollectionStore) Insert(ctx context.Context, f *domain.FeeCollection) error {
	if f == nil || f.TokenAddress == "" || f.TxHash == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO fee_collections (
			token_address, platform_fee, creator_fee, total_volume,
			block_number, tx_hash, log_index, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		f.TokenAddress,
		f.PlatformFee,
		f.CreatorFee,
		f.TotalVolume,
		f.BlockNumber,
		f.TxHash,
		f.LogIndex,
		f.Timestamp,
	)
	if err != nil {
		return mapWriteError("insert fee collection", err)
	}
	return nil
}

// GetByToken retrieves all fee collections for a token, ordered by block ASC.
func (s *FeeCollectionStore) GetByToken(ctx context.Context, token string) ([]*domain.FeeCollection, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, token_address, platform_fee, creator_fee, total_volume,
		       block_number, tx_hash, log_index, timestamp
		FROM fee_collections
		WHERE token_address = $1
		ORDER BY block_number ASC, log_index ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("get fee collections by token: %w", err)
	}
	defer rows.Close()

	var fees []*domain.FeeCollection
	for rows.Next() {
		var f domain.FeeCollection
		err := rows.Scan(
			&f.ID,
			&f.TokenAddress,
			&f.PlatformFee,
			&f.CreatorFee,
			&f.TotalVolume,
			&f.BlockNumber,
			&f.TxHash,
			&f.LogIndex,
			&f.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan fee collection row: %w", err)
		}
		fees = append(fees, &f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fee collection rows: %w", err)
	}
	return fees, nil
}
