package service

import (
	"context"
	"sync"

	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/application/session"
	"github.com/garyjia/claims-workflow/internal/application/workflow"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
)

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockUserRepo struct {
	getByIDFunc func(ctx context.Context, id string) (*entity.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *entity.User) error {
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

type sentMessage struct {
	openID string
	text   string
}

type mockNotifier struct {
	mu           sync.Mutex
	sent         []sentMessage
	sendTextFunc func(ctx context.Context, openID, text string) error
}

func (m *mockNotifier) SendText(ctx context.Context, openID, text string) error {
	if m.sendTextFunc != nil {
		return m.sendTextFunc(ctx, openID, text)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{openID: openID, text: text})
	return nil
}

func (m *mockNotifier) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

type mockAdvisor struct {
	adviseFunc func(ctx context.Context, req *port.AdviceRequest) (*port.Advice, error)
}

func (m *mockAdvisor) Advise(ctx context.Context, req *port.AdviceRequest) (*port.Advice, error) {
	if m.adviseFunc != nil {
		return m.adviseFunc(ctx, req)
	}
	return &port.Advice{Recommendation: entity.DecisionApprove, Confidence: 0.9}, nil
}

type mockReporter struct {
	renderFunc func(ctx context.Context, records []*entity.PaymentRecord) ([]byte, error)
}

func (m *mockReporter) Render(ctx context.Context, records []*entity.PaymentRecord) ([]byte, error) {
	if m.renderFunc != nil {
		return m.renderFunc(ctx, records)
	}
	return []byte("xlsx"), nil
}

// mockEngine implements workflow.ClaimEngine; only the reads used by services are configurable
type mockEngine struct {
	workflow.ClaimEngine
	getClaimFunc     func(ctx context.Context, sess session.Session, claimID string) (*workflow.ClaimView, error)
	listPaymentsFunc func(ctx context.Context, sess session.Session) ([]*entity.PaymentRecord, error)
}

func (m *mockEngine) GetClaim(ctx context.Context, sess session.Session, claimID string) (*workflow.ClaimView, error) {
	return m.getClaimFunc(ctx, sess, claimID)
}

func (m *mockEngine) ListPayments(ctx context.Context, sess session.Session) ([]*entity.PaymentRecord, error) {
	return m.listPaymentsFunc(ctx, sess)
}

var (
	_ port.UserRepository  = (*mockUserRepo)(nil)
	_ port.Notifier        = (*mockNotifier)(nil)
	_ port.Advisor         = (*mockAdvisor)(nil)
	_ port.PaymentReporter = (*mockReporter)(nil)
)
