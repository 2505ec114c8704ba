package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sensei-labs/sensei/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			guide_id TEXT,
			companion_id TEXT,
			thread_id TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_companion ON messages(companion_id, created_at)`,
		// No uniqueness constraint on name: repeated registrations insert
		// independent rows. Uniqueness is a policy decision left to callers.
		`CREATE TABLE IF NOT EXISTS companions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			hashed_password TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_companions_name ON companions(name)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveMessage appends one message to the audit trail.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *domain.Message) error {
	if msg.ID == "" {
		msg.ID = "msg_" + uuid.New().String()[:8]
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, role, content, guide_id, companion_id, thread_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.Role, msg.Content, nullable(msg.GuideID), nullable(msg.CompanionID), nullable(msg.ThreadID), msg.CreatedAt)
	return err
}

// ListMessages retrieves messages for a companion in insertion order.
func (s *SQLiteStore) ListMessages(ctx context.Context, companionID string, limit int) ([]domain.Message, error) {
	query := `SELECT id, role, content, guide_id, companion_id, thread_id, created_at FROM messages WHERE companion_id = ? ORDER BY created_at ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, companionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var guideID, compID, threadID sql.NullString
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &guideID, &compID, &threadID, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.GuideID = guideID.String
		msg.CompanionID = compID.String
		msg.ThreadID = threadID.String
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CreateCompanion inserts a new account row.
func (s *SQLiteStore) CreateCompanion(ctx context.Context, name, hashedPassword string) (*domain.Companion, error) {
	companion := &domain.Companion{
		ID:             "cmp_" + uuid.New().String()[:8],
		Name:           name,
		HashedPassword: hashedPassword,
		CreatedAt:      time.Now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO companions (id, name, hashed_password, created_at) VALUES (?, ?, ?, ?)`,
		companion.ID, companion.Name, companion.HashedPassword, companion.CreatedAt)
	if err != nil {
		return nil, err
	}
	return companion, nil
}

// GetCompanionByName returns the most recently registered account for name.
func (s *SQLiteStore) GetCompanionByName(ctx context.Context, name string) (*domain.Companion, error) {
	var companion domain.Companion
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, hashed_password, created_at FROM companions WHERE name = ? ORDER BY created_at DESC LIMIT 1`,
		name).Scan(&companion.ID, &companion.Name, &companion.HashedPassword, &companion.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrCompanionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &companion, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

var _ Store = (*SQLiteStore)(nil)
