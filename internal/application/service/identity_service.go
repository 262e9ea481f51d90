package service

import (
	"context"
	"strings"

	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/application/session"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/domain/failure"
)

// IdentityService turns a verified token subject into a session
type IdentityService interface {
	// Resolve checks the claimed identity against the user directory
	Resolve(ctx context.Context, userID string, role entity.Role) (session.Session, error)
}

type identityServiceImpl struct {
	userRepo port.UserRepository
	logger   Logger
}

// NewIdentityService creates a new IdentityService
func NewIdentityService(userRepo port.UserRepository, logger Logger) IdentityService {
	return &identityServiceImpl{
		userRepo: userRepo,
		logger:   logger,
	}
}

func (s *identityServiceImpl) Resolve(ctx context.Context, userID string, role entity.Role) (session.Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return session.Session{}, failure.Denied(failure.ReasonUnauthenticated, "token has no subject")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to get user", "error", err, "user_id", userID)
		return session.Session{}, failure.Ensure(err, "load user %s", userID)
	}
	if user == nil {
		return session.Session{}, failure.Denied(failure.ReasonUnauthenticated, "user %s is not in the directory", userID)
	}
	if user.Role != role {
		s.logger.Info("Token role does not match directory", "user_id", userID, "token_role", role, "directory_role", user.Role)
		return session.Session{}, failure.Denied(failure.ReasonWrongRole, "token role %q does not match the directory", role)
	}

	sess := session.New(user)
	if err := sess.Validate(); err != nil {
		return session.Session{}, err
	}
	return sess, nil
}
