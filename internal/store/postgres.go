package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sensei-labs/sensei/internal/domain"
)

// PGStore implements Store using Postgres via pgx.
type PGStore struct {
	db *pgxpool.Pool
}

// NewPGStore connects to Postgres and ensures the schema exists.
func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}

	s := &PGStore{db: pool}
	if err := s.createSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PGStore) createSchema(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			guide_id TEXT,
			companion_id TEXT,
			thread_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_companion ON messages(companion_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS companions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			hashed_password TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_companions_name ON companions(name)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("store: create schema: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *PGStore) Close() error {
	s.db.Close()
	return nil
}

// SaveMessage appends one message to the audit trail.
func (s *PGStore) SaveMessage(ctx context.Context, msg *domain.Message) error {
	if msg.ID == "" {
		msg.ID = "msg_" + uuid.New().String()[:8]
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO messages (id, role, content, guide_id, companion_id, thread_id, created_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7)`,
		msg.ID, msg.Role, msg.Content, msg.GuideID, msg.CompanionID, msg.ThreadID, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: save message: %w", err)
	}
	return nil
}

// ListMessages retrieves messages for a companion in insertion order.
func (s *PGStore) ListMessages(ctx context.Context, companionID string, limit int) ([]domain.Message, error) {
	query := `SELECT id, role, content, COALESCE(guide_id, ''), COALESCE(companion_id, ''), COALESCE(thread_id, ''), created_at
		 FROM messages WHERE companion_id = $1 ORDER BY created_at ASC`
	args := []interface{}{companionID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &msg.GuideID, &msg.CompanionID, &msg.ThreadID, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list messages: %w", err)
	}
	return messages, nil
}

// CreateCompanion inserts a new account row.
func (s *PGStore) CreateCompanion(ctx context.Context, name, hashedPassword string) (*domain.Companion, error) {
	companion := &domain.Companion{
		ID:             "cmp_" + uuid.New().String()[:8],
		Name:           name,
		HashedPassword: hashedPassword,
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO companions (id, name, hashed_password) VALUES ($1, $2, $3) RETURNING created_at`,
		companion.ID, name, hashedPassword).Scan(&companion.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: create companion: %w", err)
	}
	return companion, nil
}

// GetCompanionByName returns the most recently registered account for name.
func (s *PGStore) GetCompanionByName(ctx context.Context, name string) (*domain.Companion, error) {
	var companion domain.Companion
	err := s.db.QueryRow(ctx,
		`SELECT id, name, hashed_password, created_at FROM companions WHERE name = $1 ORDER BY created_at DESC LIMIT 1`,
		name).Scan(&companion.ID, &companion.Name, &companion.HashedPassword, &companion.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCompanionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get companion: %w", err)
	}
	return &companion, nil
}

var _ Store = (*PGStore)(nil)
