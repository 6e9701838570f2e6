package postgres

import (
	"context"
	"fmt"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Insert adds a new token. Returns ErrDuplicateKey if address exists.
func (s *TokenStore) Insert(ctx context.Context, t *domain.Token) error {
	if t == nil || t.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tokens (
			address, creator, name, symbol, token_id, created_at, created_block, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		t.Address,
		t.Creator,
		t.Name,
		t.Symbol,
		t.TokenID,
		t.CreatedAt,
		t.CreatedBlock,
		t.Metadata,
	)
	if err != nil {
		return mapWriteError("insert token", err)
	}
	return nil
}

// Graduate sets graduation fields of a token that has not graduated yet.
func (s *TokenStore) Graduate(ctx context.Context, g domain.Graduation) (bool, error) {
	if g.TokenAddress == "" {
		return false, storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE tokens
		SET graduated = TRUE,
		    pool_address = $2,
		    graduated_block = $3,
		    graduated_at = $4
		WHERE address = $1 AND graduated = FALSE
	`, g.TokenAddress, g.PoolAddress, g.BlockNumber, g.Timestamp)
	if err != nil {
		return false, mapWriteError("graduate token", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	// Distinguish "already graduated" from "unknown token".
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tokens WHERE address = $1)`, g.TokenAddress).Scan(&exists); err != nil {
		return false, fmt.Errorf("check token exists: %w", err)
	}
	if !exists {
		return false, storage.ErrNotFound
	}
	return false, nil
}

// GetByAddress retrieves a token by address. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByAddress(ctx context.Context, address string) (*domain.Token, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT address, creator, name, symbol, token_id, created_at, created_block,
		       graduated, pool_address, graduated_block, graduated_at, metadata
		FROM tokens
		WHERE address = $1
	`, address)

	var t domain.Token
	err := row.Scan(
		&t.Address,
		&t.Creator,
		&t.Name,
		&t.Symbol,
		&t.TokenID,
		&t.CreatedAt,
		&t.CreatedBlock,
		&t.Graduated,
		&t.PoolAddress,
		&t.GraduatedBlock,
		&t.GraduatedAt,
		&t.Metadata,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by address: %w", err)
	}
	return &t, nil
}
