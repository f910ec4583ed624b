// Package store holds the relay's Postgres repositories. One Store type
// backs all components; workers depend on narrow interfaces satisfied
// by it.
package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested row does not exist. The API
// layer maps it to 404.
var ErrNotFound = errors.New("not found")

// Store executes all relay SQL against the shared pool.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}
