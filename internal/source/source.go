// Package source provides the upstream novelty-record providers the bonus
// calculator reads from: the production postgres feed, a sqlite backend for
// development, and an in-memory provider for tests.
package source

import (
	"fmt"

	"github.com/opsdash/bonus-engine/internal/bonus"
)

// New creates a record source for the given backend.
func New(backend, dsn string) (bonus.Source, error) {
	switch backend {
	case "postgres", "postgresql":
		return NewPostgres(dsn)
	case "sqlite", "":
		return NewSQLite(dsn)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported source backend: %s", backend)
	}
}
