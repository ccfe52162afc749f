package session

import (
	"context"
	"errors"
	"time"

	"github.com/DukeRupert/plumbline/internal/domain"
)

// ErrNotFound is returned by a Store when no record exists for an id.
var ErrNotFound = errors.New("session: not found")

// Store persists session records by id. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the record for id, or ErrNotFound.
	Get(ctx context.Context, id string) (*domain.SchedulerSession, error)

	// Set creates or replaces the record keyed by s.ID.
	Set(ctx context.Context, s *domain.SchedulerSession) error

	// Delete removes the record for id. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	// SweepExpired removes every record whose ExpiresAt is before now and
	// returns how many were removed.
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}
