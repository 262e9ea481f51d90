// Package session carries the verified caller identity into workflow operations.
package session

import (
	"context"

	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/domain/failure"
)

// Session is the verified identity of the caller
type Session struct {
	UserID string      `json:"user_id"`
	Role   entity.Role `json:"role"`
}

// New creates a session for a directory user
func New(user *entity.User) Session {
	return Session{UserID: user.ID, Role: user.Role}
}

// Is reports whether the session holds role
func (s Session) Is(role entity.Role) bool {
	return s.Role == role
}

// Validate rejects sessions without an identity or with an unknown role
func (s Session) Validate() error {
	if s.UserID == "" {
		return failure.Denied(failure.ReasonUnauthenticated, "session has no user")
	}
	if !s.Role.IsValid() {
		return failure.Denied(failure.ReasonWrongRole, "session role %q is not recognized", s.Role)
	}
	return nil
}

type contextKey struct{}

// WithSession returns a copy of ctx carrying sess
func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the session stored in ctx, if any
func FromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(contextKey{}).(Session)
	return sess, ok
}
