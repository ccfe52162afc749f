package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/DukeRupert/plumbline/internal/service"
	"github.com/DukeRupert/plumbline/internal/worker"
)

// PurgeExpiredHandler deletes verification challenges and staff sessions
// past their expiry. Expired challenges are already unusable; this only
// keeps the tables small.
type PurgeExpiredHandler struct {
	verification service.VerificationService
	admins       service.AdminService
	logger       *slog.Logger
}

// NewPurgeExpiredHandler creates a new handler for cleanup jobs.
func NewPurgeExpiredHandler(verification service.VerificationService, admins service.AdminService, logger *slog.Logger) *PurgeExpiredHandler {
	return &PurgeExpiredHandler{
		verification: verification,
		admins:       admins,
		logger:       logger,
	}
}

func (h *PurgeExpiredHandler) Type() string {
	return worker.JobTypePurgeExpired
}

func (h *PurgeExpiredHandler) Handle(ctx context.Context, _ []byte) error {
	challenges, cerr := h.verification.PurgeExpired(ctx)
	sessions, serr := h.admins.PurgeExpiredSessions(ctx)
	if err := errors.Join(cerr, serr); err != nil {
		return err
	}

	h.logger.Info("purged expired records",
		"verification_challenges", challenges,
		"admin_sessions", sessions,
	)
	return nil
}
