package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/DukeRupert/plumbline/internal/domain"
	"github.com/DukeRupert/plumbline/internal/service"
	"github.com/stretchr/testify/assert"
)

type stubVerification struct {
	service.VerificationService
	purged int64
	err    error
}

func (s *stubVerification) PurgeExpired(context.Context) (int64, error) {
	return s.purged, s.err
}

type stubAdmins struct {
	service.AdminService
	purged int64
	calls  int
}

func (s *stubAdmins) PurgeExpiredSessions(context.Context) (int64, error) {
	s.calls++
	return s.purged, nil
}

func TestPurgeExpired(t *testing.T) {
	admins := &stubAdmins{purged: 2}
	h := NewPurgeExpiredHandler(&stubVerification{purged: 7}, admins, testLogger())

	assert.NoError(t, h.Handle(context.Background(), []byte(`{"requested_by":"schedule"}`)))
	assert.Equal(t, 1, admins.calls)
}

func TestPurgeExpired_ContinuesAfterFailure(t *testing.T) {
	admins := &stubAdmins{}
	dbErr := domain.Internal(errors.New("db down"), "test", "failed")
	h := NewPurgeExpiredHandler(&stubVerification{err: dbErr}, admins, testLogger())

	err := h.Handle(context.Background(), nil)
	assert.ErrorIs(t, err, dbErr)
	assert.Equal(t, 1, admins.calls, "admin sessions are purged even when challenges fail")
}
