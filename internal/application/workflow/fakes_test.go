package workflow

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/application/session"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/domain/failure"
)

var (
	employee      = session.Session{UserID: "emp-1", Role: entity.RoleEmployee}
	otherEmployee = session.Session{UserID: "emp-2", Role: entity.RoleEmployee}
	hr            = session.Session{UserID: "hr-1", Role: entity.RoleHR}
	finance       = session.Session{UserID: "fin-1", Role: entity.RoleFinance}
)

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	pdfBytes  = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")
	textBytes = []byte("just some notes, not a receipt")
)

// memStore is an in-memory backing for every repository port.
// WithTransaction restores a snapshot when fn fails.
type memStore struct {
	mu          sync.Mutex
	claims      map[string]entity.Claim
	reviews     []entity.Review
	payments    map[string]entity.Payment
	attachments map[string]entity.Attachment
	users       map[string]entity.User
	methods     map[string]entity.PaymentMethod
	claimTypes  map[string]entity.ClaimType
	transitions []entity.ClaimTransition
	files       map[string][]byte

	getClaimFunc      func(ctx context.Context, id string) (*entity.Claim, error)
	updateStatusFunc  func(ctx context.Context, id, expected, next string) (bool, error)
	createPaymentFunc func(ctx context.Context, payment *entity.Payment) error
}

func newMemStore() *memStore {
	s := &memStore{
		claims:      map[string]entity.Claim{},
		payments:    map[string]entity.Payment{},
		attachments: map[string]entity.Attachment{},
		users:       map[string]entity.User{},
		methods:     map[string]entity.PaymentMethod{},
		claimTypes:  map[string]entity.ClaimType{},
		files:       map[string][]byte{},
	}
	for _, sess := range []session.Session{employee, otherEmployee, hr, finance} {
		s.users[sess.UserID] = entity.User{ID: sess.UserID, Name: sess.UserID, Role: sess.Role}
	}
	for _, m := range []string{"bank_transfer", "cash", "e_wallet", "cheque"} {
		s.methods[m] = entity.PaymentMethod{ID: m, Method: m}
	}
	for id, name := range map[string]string{"travel": "Perjalanan Dinas", "medical": "Medis", "other": "Lain-lain"} {
		s.claimTypes[id] = entity.ClaimType{ID: id, Name: name}
	}
	return s
}

type snapshot struct {
	claims      map[string]entity.Claim
	reviews     []entity.Review
	payments    map[string]entity.Payment
	attachments map[string]entity.Attachment
	transitions []entity.ClaimTransition
}

func (s *memStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	snap := snapshot{
		claims:      copyMap(s.claims),
		reviews:     append([]entity.Review(nil), s.reviews...),
		payments:    copyMap(s.payments),
		attachments: copyMap(s.attachments),
		transitions: append([]entity.ClaimTransition(nil), s.transitions...),
	}
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.claims = snap.claims
		s.reviews = snap.reviews
		s.payments = snap.payments
		s.attachments = snap.attachments
		s.transitions = snap.transitions
		s.mu.Unlock()
		return err
	}
	return nil
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) deps() Dependencies {
	return Dependencies{
		Claims:         &claimRepo{s},
		Reviews:        &reviewRepo{s},
		Payments:       &paymentRepo{s},
		Attachments:    &attachmentRepo{s},
		Users:          &userRepo{s},
		PaymentMethods: &methodRepo{s},
		ClaimTypes:     &claimTypeRepo{s},
		Transitions:    &transitionRepo{s},
		TxManager:      s,
		Storage:        &fileStore{s},
	}
}

func (s *memStore) countPayments() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

func (s *memStore) countFiles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

func (s *memStore) rawStatus(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claims[id].Status
}

type claimRepo struct{ s *memStore }

func (r *claimRepo) Create(ctx context.Context, claim *entity.Claim) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.claims[claim.ID] = *claim
	return nil
}

func (r *claimRepo) GetByID(ctx context.Context, id string) (*entity.Claim, error) {
	if r.s.getClaimFunc != nil {
		return r.s.getClaimFunc(ctx, id)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.claims[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *claimRepo) List(ctx context.Context, filter entity.ClaimFilter) ([]*entity.Claim, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Claim
	for _, c := range r.s.claims {
		c := c
		if filter.SubmitterID != "" && c.SubmitterID != filter.SubmitterID {
			continue
		}
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *claimRepo) UpdateStatus(ctx context.Context, id, expected, next string) (bool, error) {
	if r.s.updateStatusFunc != nil {
		return r.s.updateStatusFunc(ctx, id, expected, next)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.claims[id]
	if !ok || c.Status != expected {
		return false, nil
	}
	c.Status = next
	r.s.claims[id] = c
	return true, nil
}

func (r *claimRepo) Resubmit(ctx context.Context, claim *entity.Claim, expected string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.claims[claim.ID]
	if !ok || c.Status != expected {
		return false, nil
	}
	r.s.claims[claim.ID] = *claim
	return true, nil
}

type reviewRepo struct{ s *memStore }

func (r *reviewRepo) Create(ctx context.Context, review *entity.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.reviews = append(r.s.reviews, *review)
	return nil
}

func (r *reviewRepo) GetByID(ctx context.Context, id string) (*entity.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rv := range r.s.reviews {
		if rv.ID == id {
			rv := rv
			return &rv, nil
		}
	}
	return nil, nil
}

func (r *reviewRepo) ListByClaim(ctx context.Context, claimID string) ([]entity.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Review
	for _, rv := range r.s.reviews {
		if rv.ClaimID == claimID {
			out = append(out, rv)
		}
	}
	return out, nil
}

func (r *reviewRepo) ListByClaims(ctx context.Context, claimIDs []string) (map[string][]entity.Review, error) {
	out := make(map[string][]entity.Review, len(claimIDs))
	for _, id := range claimIDs {
		reviews, _ := r.ListByClaim(ctx, id)
		out[id] = reviews
	}
	return out, nil
}

type paymentRepo struct{ s *memStore }

func (r *paymentRepo) Create(ctx context.Context, payment *entity.Payment) error {
	if r.s.createPaymentFunc != nil {
		return r.s.createPaymentFunc(ctx, payment)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.payments[payment.ClaimID]; exists {
		return failure.Conflict(failure.ReasonDuplicatePayment, "claim %s already has a payment", payment.ClaimID)
	}
	r.s.payments[payment.ClaimID] = *payment
	return nil
}

func (r *paymentRepo) GetByID(ctx context.Context, id string) (*entity.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (r *paymentRepo) GetByClaimID(ctx context.Context, claimID string) (*entity.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[claimID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *paymentRepo) List(ctx context.Context) ([]*entity.PaymentRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.PaymentRecord
	for _, p := range r.s.payments {
		c := r.s.claims[p.ClaimID]
		out = append(out, &entity.PaymentRecord{
			Payment:          p,
			SubmitterID:      c.SubmitterID,
			TransactionTotal: c.TransactionTotal.String(),
			Method:           r.s.methods[p.PaymentMethodID].Method,
		})
	}
	return out, nil
}

type attachmentRepo struct{ s *memStore }

func (r *attachmentRepo) Create(ctx context.Context, att *entity.Attachment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.attachments[att.ID] = *att
	return nil
}

func (r *attachmentRepo) GetByID(ctx context.Context, id string) (*entity.Attachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.attachments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *attachmentRepo) ListByOwner(ctx context.Context, kind entity.OwnerKind, ownerID string) ([]entity.Attachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Attachment
	for _, a := range r.s.attachments {
		if a.OwnerKind == kind && a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	return out, nil
}

type userRepo struct{ s *memStore }

func (r *userRepo) Create(ctx context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

type methodRepo struct{ s *memStore }

func (r *methodRepo) GetByID(ctx context.Context, id string) (*entity.PaymentMethod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.methods[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r *methodRepo) List(ctx context.Context) ([]*entity.PaymentMethod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.PaymentMethod
	for _, m := range r.s.methods {
		m := m
		out = append(out, &m)
	}
	return out, nil
}

type claimTypeRepo struct{ s *memStore }

func (r *claimTypeRepo) GetByID(ctx context.Context, id string) (*entity.ClaimType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ct, ok := r.s.claimTypes[id]
	if !ok {
		return nil, nil
	}
	return &ct, nil
}

func (r *claimTypeRepo) List(ctx context.Context) ([]*entity.ClaimType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.ClaimType, 0, len(r.s.claimTypes))
	for _, ct := range r.s.claimTypes {
		ct := ct
		out = append(out, &ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type transitionRepo struct{ s *memStore }

func (r *transitionRepo) Create(ctx context.Context, t *entity.ClaimTransition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = int64(len(r.s.transitions) + 1)
	r.s.transitions = append(r.s.transitions, *t)
	return nil
}

func (r *transitionRepo) ListByClaim(ctx context.Context, claimID string) ([]*entity.ClaimTransition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.ClaimTransition
	for _, t := range r.s.transitions {
		if t.ClaimID == claimID {
			t := t
			out = append(out, &t)
		}
	}
	return out, nil
}

type fileStore struct{ s *memStore }

func (f *fileStore) Save(ctx context.Context, path string, content []byte) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.files[path] = content
	return nil
}

func (f *fileStore) Read(ctx context.Context, path string) ([]byte, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	content, ok := f.s.files[path]
	if !ok {
		return nil, errors.New("file not found")
	}
	return content, nil
}

func (f *fileStore) Exists(ctx context.Context, path string) bool {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	_, ok := f.s.files[path]
	return ok
}

func (f *fileStore) Delete(ctx context.Context, path string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	delete(f.s.files, path)
	return nil
}

func (f *fileStore) GetFullPath(relativePath string) string {
	return "/mem/" + relativePath
}

type mockInspector struct {
	inspectFunc func(ctx context.Context, content []byte) (*port.DocumentInfo, error)
}

func (m *mockInspector) Inspect(ctx context.Context, content []byte) (*port.DocumentInfo, error) {
	if m.inspectFunc != nil {
		return m.inspectFunc(ctx, content)
	}
	return &port.DocumentInfo{PageCount: 1}, nil
}

// stepClock advances one minute on every reading
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2025, 1, 21, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

var (
	_ port.ClaimRepository         = (*claimRepo)(nil)
	_ port.ReviewRepository        = (*reviewRepo)(nil)
	_ port.PaymentRepository       = (*paymentRepo)(nil)
	_ port.AttachmentRepository    = (*attachmentRepo)(nil)
	_ port.UserRepository          = (*userRepo)(nil)
	_ port.PaymentMethodRepository = (*methodRepo)(nil)
	_ port.ClaimTypeRepository     = (*claimTypeRepo)(nil)
	_ port.TransitionRepository    = (*transitionRepo)(nil)
	_ port.TransactionManager      = (*memStore)(nil)
	_ port.FileStorage             = (*fileStore)(nil)
)
