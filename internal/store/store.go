// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/aranea-sec/aranea/internal/domain"
)

// ErrUsernameTaken is returned by CreateUser when the username already
// exists.
var ErrUsernameTaken = errors.New("username is already taken")

// Repository defines the interface for persisting users and engagement
// turns.
type Repository interface {
	// CreateUser inserts a new user record.
	CreateUser(ctx context.Context, user *domain.User) error

	// GetUserByUsername retrieves a user by username. Returns (nil, nil)
	// when no such user exists.
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)

	// UpdateLastLogin records a successful login time.
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error

	// RecordTurn appends a completed turn to the durable engagement log.
	RecordTurn(ctx context.Context, sessionID string, entry domain.HistoryEntry) error

	// TurnsForSession returns the persisted turns of one session in append
	// order.
	TurnsForSession(ctx context.Context, sessionID string) ([]domain.HistoryEntry, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
