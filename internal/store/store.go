// Package store persists the append-only message audit trail and companion
// accounts. Two implementations are provided: SQLite for single-node and
// development deployments, Postgres for hosted ones; the DSN scheme selects
// between them.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/sensei-labs/sensei/internal/domain"
)

var (
	// ErrCompanionNotFound is returned when no account matches a name.
	ErrCompanionNotFound = errors.New("store: companion not found")
)

// Store defines the contract for persisting messages and companion accounts.
type Store interface {
	// Messages (append-only; never mutated or deleted)
	SaveMessage(ctx context.Context, msg *domain.Message) error
	ListMessages(ctx context.Context, companionID string, limit int) ([]domain.Message, error)

	// Companions
	CreateCompanion(ctx context.Context, name, hashedPassword string) (*domain.Companion, error)
	GetCompanionByName(ctx context.Context, name string) (*domain.Companion, error)

	Close() error
}

// Open selects an implementation from the DSN: postgres:// URLs get the
// Postgres store, everything else is treated as a SQLite DSN.
func Open(ctx context.Context, dsn string) (Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return NewPGStore(ctx, dsn)
	}
	return NewSQLiteStore(dsn)
}
