package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/application/session"
	"github.com/garyjia/claims-workflow/internal/application/workflow"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/domain/failure"
)

var hrSession = session.Session{UserID: "hr-1", Role: entity.RoleHR}

func claimView() *workflow.ClaimView {
	return &workflow.ClaimView{
		Claim: &entity.Claim{
			ID:          "claim-1",
			SubmitterID: "emp-1",
			Attachments: []entity.Attachment{{ID: "att-1", FileName: "receipt.pdf"}},
		},
		ClaimType: &entity.ClaimType{ID: "ct-001", Name: "Medis"},
		Reviews:   []entity.Review{{ID: "rev-1", Decision: entity.DecisionNeedsInfo}},
	}
}

func TestAdviceService_Advise(t *testing.T) {
	var got *port.AdviceRequest
	engine := &mockEngine{getClaimFunc: func(ctx context.Context, sess session.Session, claimID string) (*workflow.ClaimView, error) {
		return claimView(), nil
	}}
	advisor := &mockAdvisor{adviseFunc: func(ctx context.Context, req *port.AdviceRequest) (*port.Advice, error) {
		got = req
		return &port.Advice{Recommendation: entity.DecisionReject, Confidence: 0.7, Reasoning: "over limit"}, nil
	}}
	svc := NewAdviceService(engine, directory(entity.User{ID: "emp-1", Name: "Dewi"}), advisor, &mockLogger{})

	advice, err := svc.Advise(context.Background(), hrSession, "claim-1")
	require.NoError(t, err)
	assert.Equal(t, entity.DecisionReject, advice.Recommendation)

	require.NotNil(t, got)
	assert.Equal(t, "Dewi", got.Submitter.Name)
	require.NotNil(t, got.ClaimType)
	assert.Equal(t, "Medis", got.ClaimType.Name)
	assert.Len(t, got.Reviews, 1)
	assert.Len(t, got.Attachments, 1)
}

func TestAdviceService_Errors(t *testing.T) {
	okEngine := &mockEngine{getClaimFunc: func(ctx context.Context, sess session.Session, claimID string) (*workflow.ClaimView, error) {
		return claimView(), nil
	}}

	tests := []struct {
		name       string
		sess       session.Session
		engine     *mockEngine
		advisor    port.Advisor
		wantKind   failure.Kind
		wantReason failure.Reason
	}{
		{
			name:       "employee may not ask",
			sess:       session.Session{UserID: "emp-1", Role: entity.RoleEmployee},
			engine:     okEngine,
			advisor:    &mockAdvisor{},
			wantKind:   failure.KindAuthorization,
			wantReason: failure.ReasonWrongRole,
		},
		{
			name:       "advisor disabled",
			sess:       hrSession,
			engine:     okEngine,
			wantKind:   failure.KindTransport,
			wantReason: failure.ReasonUnavailable,
		},
		{
			name: "claim not found",
			sess: hrSession,
			engine: &mockEngine{getClaimFunc: func(ctx context.Context, sess session.Session, claimID string) (*workflow.ClaimView, error) {
				return nil, failure.NotFound("claim_id", "claim %s not found", claimID)
			}},
			advisor:    &mockAdvisor{},
			wantKind:   failure.KindValidation,
			wantReason: failure.ReasonNotFound,
		},
		{
			name:   "advisor failure",
			sess:   hrSession,
			engine: okEngine,
			advisor: &mockAdvisor{adviseFunc: func(ctx context.Context, req *port.AdviceRequest) (*port.Advice, error) {
				return nil, errors.New("rate limited")
			}},
			wantKind:   failure.KindTransport,
			wantReason: failure.ReasonUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewAdviceService(tt.engine, directory(), tt.advisor, &mockLogger{})

			_, err := svc.Advise(context.Background(), tt.sess, "claim-1")
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, failure.KindOf(err))
			assert.Equal(t, tt.wantReason, failure.ReasonOf(err))
		})
	}
}

func TestAdviceService_DisabledMentionsAdvisor(t *testing.T) {
	svc := NewAdviceService(&mockEngine{}, directory(), nil, &mockLogger{})

	_, err := svc.Advise(context.Background(), hrSession, "claim-1")
	assert.ErrorIs(t, err, ErrAdvisorDisabled)
}
