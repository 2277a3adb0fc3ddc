package db

import (
	"context"
	"errors"
)

// Cursor is the indexer cursor. Redis holds it; without Redis the last
// block with a stored entry is rescanned, which the unique index makes safe.
type Cursor struct{}

// Load returns the last indexed block. ok is false when nothing is known.
func (Cursor) Load(ctx context.Context) (uint64, bool, error) {
	block, ok, err := GetLastBlock(ctx)
	if !errors.Is(err, ErrRedisDisabled) {
		return block, ok, err
	}

	stored, err := LatestStoredBlock(ctx)
	if errors.Is(err, ErrPostgresDisabled) {
		return 0, false, nil
	}
	if err != nil || stored == 0 {
		return 0, false, err
	}
	return stored - 1, true, nil
}

// Save stores the cursor in Redis. It is a no-op without Redis.
func (Cursor) Save(ctx context.Context, block uint64) error {
	if err := SetLastBlock(ctx, block); err != nil && !errors.Is(err, ErrRedisDisabled) {
		return err
	}
	return nil
}
