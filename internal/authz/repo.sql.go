package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GrantStore persists the grant ledger in PostgreSQL for deployments
// that opt into durability. Expected schema:
//
//	CREATE TABLE grants (
//	    identity   TEXT NOT NULL,
//	    feature    TEXT NOT NULL,
//	    granted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    PRIMARY KEY (identity, feature)
//	);
//
// The in-memory Ledger stays authoritative at runtime; the store is a
// write-behind target applied by the worker and read once at startup.
type GrantStore struct {
	pool *pgxpool.Pool
}

// NewGrantStore constructs a GrantStore backed by the provided pool.
func NewGrantStore(pool *pgxpool.Pool) *GrantStore {
	return &GrantStore{pool: pool}
}

const pgUniqueViolation = "23505"

// Insert records a grant. Re-inserting an existing pair is a no-op so the
// durable store shares the ledger's idempotence.
func (s *GrantStore) Insert(ctx context.Context, identity string, feature Feature) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO grants (identity, feature) VALUES ($1, $2)`,
		identity, string(feature),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil
		}
		return fmt.Errorf("authz: insert grant: %w", err)
	}
	return nil
}

// Delete removes a persisted grant. Deleting an absent pair is a no-op.
func (s *GrantStore) Delete(ctx context.Context, identity string, feature Feature) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM grants WHERE identity = $1 AND feature = $2`,
		identity, string(feature),
	); err != nil {
		return fmt.Errorf("authz: delete grant: %w", err)
	}
	return nil
}

// All loads every persisted grant, keyed by identity. Used to restore
// the ledger at startup.
func (s *GrantStore) All(ctx context.Context) (map[string][]Feature, error) {
	rows, err := s.pool.Query(ctx, `SELECT identity, feature FROM grants ORDER BY identity, feature`)
	if err != nil {
		return nil, fmt.Errorf("authz: load grants: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]Feature)
	for rows.Next() {
		var identity, feature string
		if err := rows.Scan(&identity, &feature); err != nil {
			return nil, fmt.Errorf("authz: scan grant: %w", err)
		}
		parsed, err := ParseFeature(feature)
		if err != nil {
			// Rows predating code validation are skipped, not fatal.
			continue
		}
		out[identity] = append(out[identity], parsed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("authz: iterate grants: %w", err)
	}
	return out, nil
}
