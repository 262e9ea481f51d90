package service

import (
	"context"
	"errors"

	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/application/session"
	"github.com/garyjia/claims-workflow/internal/application/workflow"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/domain/failure"
)

// ErrAdvisorDisabled is wrapped when no advisor is configured
var ErrAdvisorDisabled = errors.New("advisor not configured")

// AdviceService asks the advisor for a non-binding review recommendation
type AdviceService interface {
	Advise(ctx context.Context, sess session.Session, claimID string) (*port.Advice, error)
}

type adviceServiceImpl struct {
	engine   workflow.ClaimEngine
	userRepo port.UserRepository
	advisor  port.Advisor
	logger   Logger
}

// NewAdviceService creates a new AdviceService. advisor may be nil.
func NewAdviceService(engine workflow.ClaimEngine, userRepo port.UserRepository, advisor port.Advisor, logger Logger) AdviceService {
	return &adviceServiceImpl{
		engine:   engine,
		userRepo: userRepo,
		advisor:  advisor,
		logger:   logger,
	}
}

// Advise never changes the claim. Only HR may ask.
func (s *adviceServiceImpl) Advise(ctx context.Context, sess session.Session, claimID string) (*port.Advice, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	if !sess.Is(entity.RoleHR) {
		return nil, failure.Denied(failure.ReasonWrongRole, "role %q may not request review advice", sess.Role)
	}
	if s.advisor == nil {
		return nil, failure.Transport(ErrAdvisorDisabled, "advise on claim %s", claimID)
	}

	view, err := s.engine.GetClaim(ctx, sess, claimID)
	if err != nil {
		return nil, err
	}

	submitter, err := s.userRepo.GetByID(ctx, view.Claim.SubmitterID)
	if err != nil {
		s.logger.Error("Failed to get submitter", "error", err, "claim_id", view.Claim.ID)
		return nil, failure.Ensure(err, "load submitter")
	}

	advice, err := s.advisor.Advise(ctx, &port.AdviceRequest{
		Claim:       view.Claim,
		ClaimType:   view.ClaimType,
		Submitter:   submitter,
		Reviews:     view.Reviews,
		Attachments: view.Claim.Attachments,
	})
	if err != nil {
		s.logger.Error("Advisor failed", "error", err, "claim_id", view.Claim.ID)
		return nil, failure.Ensure(err, "advise on claim %s", view.Claim.ID)
	}

	s.logger.Info("Review advice produced",
		"claim_id", view.Claim.ID,
		"recommendation", advice.Recommendation,
		"confidence", advice.Confidence,
	)
	return advice, nil
}
