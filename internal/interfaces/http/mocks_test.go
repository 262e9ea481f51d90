package http

import (
	"context"
	"errors"
	"sync"

	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/application/session"
	"github.com/garyjia/claims-workflow/internal/application/workflow"
	"github.com/garyjia/claims-workflow/internal/auth"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/domain/failure"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// recordingLogger keeps Error calls with their key-value pairs
type recordingLogger struct {
	mu     sync.Mutex
	errors []loggedError
}

type loggedError struct {
	msg    string
	fields map[string]interface{}
}

func (l *recordingLogger) Info(string, ...interface{}) {}

func (l *recordingLogger) Error(msg string, keysAndValues ...interface{}) {
	fields := make(map[string]interface{})
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, loggedError{msg: msg, fields: fields})
}

func (l *recordingLogger) Errors() []loggedError {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]loggedError(nil), l.errors...)
}

// mockTokens accepts tokens of the form "<user>:<role>"
type mockTokens struct{}

func (mockTokens) ValidateAccessToken(token string) (*auth.Identity, error) {
	for i := 0; i < len(token); i++ {
		if token[i] == ':' {
			return &auth.Identity{UserID: token[:i], Role: entity.Role(token[i+1:])}, nil
		}
	}
	return nil, errors.New("bad token")
}

// mockIdentity trusts the token unless the user is listed in denied
type mockIdentity struct {
	denied map[string]error
}

func (m *mockIdentity) Resolve(ctx context.Context, userID string, role entity.Role) (session.Session, error) {
	if err, ok := m.denied[userID]; ok {
		return session.Session{}, err
	}
	return session.Session{UserID: userID, Role: role}, nil
}

type mockEngine struct {
	workflow.ClaimEngine

	submitFunc         func(ctx context.Context, sess session.Session, in workflow.SubmitClaimInput) (*entity.Claim, error)
	resubmitFunc       func(ctx context.Context, sess session.Session, claimID string, in workflow.ResubmitInput) (*entity.Claim, error)
	reviewFunc         func(ctx context.Context, sess session.Session, in workflow.ReviewInput) (*workflow.ReviewOutcome, error)
	payFunc            func(ctx context.Context, sess session.Session, in workflow.PaymentInput) (*workflow.PaymentOutcome, error)
	getClaimFunc       func(ctx context.Context, sess session.Session, claimID string) (*workflow.ClaimView, error)
	listClaimsFunc     func(ctx context.Context, sess session.Session, filter entity.ClaimFilter) ([]*workflow.ClaimSummary, error)
	attachFunc         func(ctx context.Context, sess session.Session, claimID string, upload entity.Upload) (*entity.Attachment, error)
	openAttachmentFunc func(ctx context.Context, sess session.Session, attachmentID string) (*entity.Attachment, []byte, error)
	historyFunc        func(ctx context.Context, sess session.Session, claimID string) ([]*entity.ClaimTransition, error)
	listReviewsFunc    func(ctx context.Context, sess session.Session, claimID string) ([]entity.Review, error)
	listPaymentsFunc   func(ctx context.Context, sess session.Session) ([]*entity.PaymentRecord, error)
	methodsFunc        func(ctx context.Context) ([]*entity.PaymentMethod, error)
	claimTypesFunc     func(ctx context.Context) ([]*entity.ClaimType, error)
}

func (m *mockEngine) Submit(ctx context.Context, sess session.Session, in workflow.SubmitClaimInput) (*entity.Claim, error) {
	return m.submitFunc(ctx, sess, in)
}

func (m *mockEngine) Resubmit(ctx context.Context, sess session.Session, claimID string, in workflow.ResubmitInput) (*entity.Claim, error) {
	return m.resubmitFunc(ctx, sess, claimID, in)
}

func (m *mockEngine) Review(ctx context.Context, sess session.Session, in workflow.ReviewInput) (*workflow.ReviewOutcome, error) {
	return m.reviewFunc(ctx, sess, in)
}

func (m *mockEngine) Pay(ctx context.Context, sess session.Session, in workflow.PaymentInput) (*workflow.PaymentOutcome, error) {
	return m.payFunc(ctx, sess, in)
}

func (m *mockEngine) GetClaim(ctx context.Context, sess session.Session, claimID string) (*workflow.ClaimView, error) {
	return m.getClaimFunc(ctx, sess, claimID)
}

func (m *mockEngine) ListClaims(ctx context.Context, sess session.Session, filter entity.ClaimFilter) ([]*workflow.ClaimSummary, error) {
	return m.listClaimsFunc(ctx, sess, filter)
}

func (m *mockEngine) AttachToClaim(ctx context.Context, sess session.Session, claimID string, upload entity.Upload) (*entity.Attachment, error) {
	return m.attachFunc(ctx, sess, claimID, upload)
}

func (m *mockEngine) OpenAttachment(ctx context.Context, sess session.Session, attachmentID string) (*entity.Attachment, []byte, error) {
	return m.openAttachmentFunc(ctx, sess, attachmentID)
}

func (m *mockEngine) History(ctx context.Context, sess session.Session, claimID string) ([]*entity.ClaimTransition, error) {
	return m.historyFunc(ctx, sess, claimID)
}

func (m *mockEngine) ListReviews(ctx context.Context, sess session.Session, claimID string) ([]entity.Review, error) {
	return m.listReviewsFunc(ctx, sess, claimID)
}

func (m *mockEngine) ListPayments(ctx context.Context, sess session.Session) ([]*entity.PaymentRecord, error) {
	return m.listPaymentsFunc(ctx, sess)
}

func (m *mockEngine) PaymentMethods(ctx context.Context) ([]*entity.PaymentMethod, error) {
	return m.methodsFunc(ctx)
}

func (m *mockEngine) ClaimTypes(ctx context.Context) ([]*entity.ClaimType, error) {
	return m.claimTypesFunc(ctx)
}

type mockAdvice struct {
	adviseFunc func(ctx context.Context, sess session.Session, claimID string) (*port.Advice, error)
}

func (m *mockAdvice) Advise(ctx context.Context, sess session.Session, claimID string) (*port.Advice, error) {
	return m.adviseFunc(ctx, sess, claimID)
}

type mockReports struct {
	exportFunc func(ctx context.Context, sess session.Session) ([]byte, error)
}

func (m *mockReports) ExportPayments(ctx context.Context, sess session.Session) ([]byte, error) {
	return m.exportFunc(ctx, sess)
}

var errStoreDown = failure.Transport(errors.New("disk I/O error"), "failed to load claim")
