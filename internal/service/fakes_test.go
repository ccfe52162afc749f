package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/DukeRupert/plumbline/internal/repository"
	"github.com/google/uuid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeChallengeQueries is an in-memory ChallengeQueries.
type fakeChallengeQueries struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]repository.VerificationChallenge
	clock *fakeClock
}

func newFakeChallengeQueries(clock *fakeClock) *fakeChallengeQueries {
	return &fakeChallengeQueries{
		rows:  make(map[uuid.UUID]repository.VerificationChallenge),
		clock: clock,
	}
}

func (f *fakeChallengeQueries) CreateVerificationChallenge(_ context.Context, arg repository.CreateVerificationChallengeParams) (repository.VerificationChallenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := repository.VerificationChallenge{
		ID:               uuid.New(),
		CustomerIds:      append([]int64(nil), arg.CustomerIds...),
		ContactValue:     arg.ContactValue,
		VerificationType: arg.VerificationType,
		Code:             arg.Code,
		ExpiresAt:        arg.ExpiresAt,
		RequestedIp:      arg.RequestedIp,
		CreatedAt:        f.clock.Now(),
	}
	f.rows[row.ID] = row
	return row, nil
}

func (f *fakeChallengeQueries) GetLatestVerificationChallenge(_ context.Context, arg repository.GetLatestVerificationChallengeParams) (repository.VerificationChallenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matches []repository.VerificationChallenge
	for _, r := range f.rows {
		if r.ContactValue == arg.ContactValue && r.VerificationType == arg.VerificationType {
			matches = append(matches, r)
		}
	}
	if len(matches) == 0 {
		return repository.VerificationChallenge{}, sql.ErrNoRows
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.After(matches[j].CreatedAt) })
	return matches[0], nil
}

func (f *fakeChallengeQueries) IncrementVerificationAttempts(_ context.Context, id uuid.UUID) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return 0, sql.ErrNoRows
	}
	r.Attempts++
	f.rows[id] = r
	return r.Attempts, nil
}

func (f *fakeChallengeQueries) DeleteVerificationChallenge(_ context.Context, id uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return 0, nil
	}
	delete(f.rows, id)
	return 1, nil
}

func (f *fakeChallengeQueries) DeleteVerificationChallengesByContact(_ context.Context, arg repository.DeleteVerificationChallengesByContactParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, r := range f.rows {
		if r.ContactValue == arg.ContactValue && r.VerificationType == arg.VerificationType {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeChallengeQueries) DeleteExpiredVerificationChallenges(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, r := range f.rows {
		if r.ExpiresAt.Before(now) {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeChallengeQueries) CountVerificationChallenges(_ context.Context, now time.Time) (repository.CountVerificationChallengesRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var row repository.CountVerificationChallengesRow
	for _, r := range f.rows {
		if r.ExpiresAt.Before(now) {
			row.Expired++
			continue
		}
		row.Pending++
		if r.VerificationType == "sms" {
			row.PendingSms++
		} else {
			row.PendingEmail++
		}
	}
	return row, nil
}

func (f *fakeChallengeQueries) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// setExpiry moves every challenge's expiry to the given time.
func (f *fakeChallengeQueries) setExpiry(at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, r := range f.rows {
		r.ExpiresAt = at
		f.rows[id] = r
	}
}
