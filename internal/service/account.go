package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/sensei-labs/sensei/internal/domain"
	"github.com/sensei-labs/sensei/internal/store"
)

const bcryptCost = 10

var (
	// ErrUnknownCompanion is returned when no account matches the name.
	ErrUnknownCompanion = errors.New("unknown companion")
	// ErrInvalidCredentials is returned when the password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Register creates a companion account with a bcrypt-hashed password.
// Names are not unique; each registration produces a distinct account row.
func (s *Service) Register(ctx context.Context, name, password string) (*domain.Companion, error) {
	if name == "" || password == "" {
		return nil, fmt.Errorf("name and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	companion, err := s.store.CreateCompanion(ctx, name, string(hash))
	if err != nil {
		return nil, fmt.Errorf("failed to create companion: %w", err)
	}
	return companion, nil
}

// Login verifies a name/password pair and returns the matching account.
func (s *Service) Login(ctx context.Context, name, password string) (*domain.Companion, error) {
	companion, err := s.store.GetCompanionByName(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrCompanionNotFound) {
			return nil, ErrUnknownCompanion
		}
		return nil, fmt.Errorf("failed to look up companion: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(companion.HashedPassword), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return companion, nil
}
