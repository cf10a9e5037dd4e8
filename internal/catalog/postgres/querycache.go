package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// GetQueryCache implements [catalog.QueryCache]. A miss returns
// (nil, false, nil).
func (s *Store) GetQueryCache(ctx context.Context, key string) ([]byte, bool, error) {
	var response []byte
	err := s.pool.QueryRow(ctx,
		`SELECT response FROM query_cache WHERE cache_key = $1`, key,
	).Scan(&response)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("postgres: get query cache: %w", err)
	}
	return response, true, nil
}

// PutQueryCache implements [catalog.QueryCache]. Last writer wins per key.
func (s *Store) PutQueryCache(ctx context.Context, key string, response []byte) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO query_cache (cache_key, response, created_at)
VALUES ($1, $2, now())
ON CONFLICT (cache_key) DO UPDATE SET
    response = EXCLUDED.response, created_at = now()`,
		key, response,
	)
	if err != nil {
		return fmt.Errorf("postgres: put query cache: %w", err)
	}
	return nil
}

// PruneQueryCache implements [catalog.QueryCache], deleting entries written
// more than olderThan ago. Returns the number of rows removed.
func (s *Store) PruneQueryCache(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM query_cache WHERE created_at < now() - make_interval(secs => $1)`,
		olderThan.Seconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("postgres: prune query cache: %w", err)
	}
	return tag.RowsAffected(), nil
}
