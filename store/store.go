// Package store defines the persistence interface and implementations
// for completed interview sessions.
package store

import (
	"context"

	"github.com/voxhire/interviewd/domain"
	"github.com/voxhire/interviewd/engine"
)

// Store persists session records so reports remain retrievable after
// the in-memory registry lets go of a session.
type Store interface {
	// SaveSession inserts or replaces the full session record,
	// including evaluations and the final evaluation.
	SaveSession(ctx context.Context, session *domain.Session) error

	// GetSession retrieves a session by ID. Returns
	// *domain.SessionNotFoundError when absent.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// ListSessions returns the most recent sessions, newest first.
	ListSessions(ctx context.Context, limit int) ([]domain.Session, error)

	// SaveTransitions appends state machine transitions for a session.
	SaveTransitions(ctx context.Context, sessionID string, transitions []engine.Transition) error

	// GetTransitions returns the recorded transition log for a session.
	GetTransitions(ctx context.Context, sessionID string) ([]engine.Transition, error)

	// Lifecycle
	Close() error
}
