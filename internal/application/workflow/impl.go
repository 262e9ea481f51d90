package workflow

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/claims-workflow/internal/application/dispatcher"
	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/application/session"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/domain/event"
	"github.com/garyjia/claims-workflow/internal/domain/failure"
	"github.com/garyjia/claims-workflow/internal/domain/gate"
	"github.com/garyjia/claims-workflow/internal/domain/status"
	"github.com/garyjia/claims-workflow/internal/domain/validation"
	domainwf "github.com/garyjia/claims-workflow/internal/domain/workflow"
)

// DefaultOperationTimeout bounds every engine operation
const DefaultOperationTimeout = 10 * time.Second

// TriggerSubmit is recorded in history for the creation of a claim
const TriggerSubmit = "submit"

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// Dependencies are the collaborators of the engine
type Dependencies struct {
	Claims         port.ClaimRepository
	Reviews        port.ReviewRepository
	Payments       port.PaymentRepository
	Attachments    port.AttachmentRepository
	Users          port.UserRepository
	PaymentMethods port.PaymentMethodRepository
	ClaimTypes     port.ClaimTypeRepository
	Transitions    port.TransitionRepository
	TxManager      port.TransactionManager
	Storage        port.FileStorage
	// Inspector is optional; without it PDFs are stored unchecked
	Inspector port.DocumentInspector
}

// engineImpl is the concrete implementation of ClaimEngine
type engineImpl struct {
	deps       Dependencies
	dispatcher dispatcher.Dispatcher
	logger     Logger
	timeout    time.Duration
	now        func() time.Time
	intake     *intake
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithLogger sets the engine logger
func WithLogger(logger Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = logger
	}
}

// WithOperationTimeout bounds each operation, including its store calls
func WithOperationTimeout(timeout time.Duration) EngineOption {
	return func(e *engineImpl) {
		e.timeout = timeout
	}
}

// WithMaxUploadSize bounds a single uploaded file
func WithMaxUploadSize(size int64) EngineOption {
	return func(e *engineImpl) {
		e.intake.maxSize = size
	}
}

// WithClock replaces the time source
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new claim engine
func NewEngine(deps Dependencies, opts ...EngineOption) ClaimEngine {
	e := &engineImpl{
		deps:    deps,
		logger:  nopLogger{},
		timeout: DefaultOperationTimeout,
		now:     time.Now,
		intake: &intake{
			storage:   deps.Storage,
			inspector: deps.Inspector,
			maxSize:   DefaultMaxUploadSize,
		},
	}

	for _, opt := range opts {
		opt(e)
	}
	e.intake.logger = e.logger

	return e
}

// claimFacts is a claim with the records that decide its state
type claimFacts struct {
	claim         *entity.Claim
	reviews       []entity.Review
	authoritative *entity.Review
	payment       *entity.Payment
	state         domainwf.State
}

func (f *claimFacts) gateFacts(userID string) gate.Facts {
	return gate.Facts{
		State:      f.state,
		HasPayment: f.payment != nil,
		IsOwner:    f.claim.IsOwnedBy(userID),
	}
}

func (e *engineImpl) Submit(ctx context.Context, sess session.Session, in SubmitClaimInput) (*entity.Claim, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := e.authorize(sess, gate.TransitionSubmit); err != nil {
		return nil, err
	}

	values, err := e.validateClaim(ctx, validation.ClaimDraft{
		SubmitterID:      sess.UserID,
		ClaimTypeID:      in.ClaimTypeID,
		Desc1:            in.Desc1,
		Desc2:            in.Desc2,
		Description:      in.Description,
		TransactionDate:  in.TransactionDate,
		TransactionTotal: in.TransactionTotal,
	})
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	claim := &entity.Claim{
		ID:               uuid.NewString(),
		SubmitterID:      sess.UserID,
		ClaimTypeID:      strings.TrimSpace(in.ClaimTypeID),
		Desc1:            strings.TrimSpace(in.Desc1),
		Desc2:            strings.TrimSpace(in.Desc2),
		Description:      strings.TrimSpace(in.Description),
		TransactionDate:  values.TransactionDate,
		TransactionTotal: values.TransactionTotal,
		Status:           domainwf.StatePending.String(),
		SubmittedAt:      now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	atts, err := e.intake.prepareAll(ctx, entity.OwnerClaim, claim.ID, sess.UserID, in.Attachments, now)
	if err != nil {
		return nil, err
	}

	err = e.deps.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.deps.Claims.Create(txCtx, claim); err != nil {
			return failure.Ensure(err, "create claim")
		}
		if err := e.createAttachments(txCtx, atts); err != nil {
			return err
		}
		return e.recordTransition(txCtx, claim.ID, sess.UserID, TriggerSubmit, "", domainwf.StatePending, now)
	})
	if err != nil {
		e.intake.discard(ctx, atts...)
		return nil, failure.Ensure(err, "commit claim")
	}

	claim.Attachments = derefAll(atts)

	e.logger.Info("Claim submitted", "claim_id", claim.ID, "user_id", sess.UserID, "amount", claim.TransactionTotal.String())
	e.emit(ctx, event.NewEvent(event.TypeClaimSubmitted, claim.ID, sess.UserID, map[string]interface{}{
		event.KeySubmitterID: claim.SubmitterID,
		event.KeyToState:     domainwf.StatePending.String(),
	}))

	return claim, nil
}

func (e *engineImpl) Resubmit(ctx context.Context, sess session.Session, claimID string, in ResubmitInput) (*entity.Claim, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := e.authorize(sess, gate.TransitionResubmit); err != nil {
		return nil, err
	}

	facts, err := e.load(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if err := gate.Authorize(sess.Role, gate.TransitionResubmit, facts.gateFacts(sess.UserID)); err != nil {
		return nil, err
	}

	current := facts.claim
	draft := validation.ClaimDraft{
		SubmitterID:      current.SubmitterID,
		ClaimTypeID:      pick(in.ClaimTypeID, current.ClaimTypeID),
		Desc1:            pick(in.Desc1, current.Desc1),
		Desc2:            pick(in.Desc2, current.Desc2),
		Description:      pick(in.Description, current.Description),
		TransactionDate:  pick(in.TransactionDate, current.TransactionDate.Format(entity.DateLayout)),
		TransactionTotal: pick(in.TransactionTotal, current.TransactionTotal.String()),
	}
	values, err := e.validateClaim(ctx, draft)
	if err != nil {
		return nil, err
	}

	machine := BuildClaimStateMachine(facts.state, facts.payment != nil)
	if err := fire(ctx, machine, domainwf.TriggerResubmit); err != nil {
		return nil, err
	}

	now := e.now().UTC()
	updated := *current
	updated.ClaimTypeID = strings.TrimSpace(draft.ClaimTypeID)
	updated.Desc1 = strings.TrimSpace(draft.Desc1)
	updated.Desc2 = strings.TrimSpace(draft.Desc2)
	updated.Description = strings.TrimSpace(draft.Description)
	updated.TransactionDate = values.TransactionDate
	updated.TransactionTotal = values.TransactionTotal
	updated.Status = machine.State().String()
	updated.SubmittedAt = now
	updated.UpdatedAt = now

	atts, err := e.intake.prepareAll(ctx, entity.OwnerClaim, current.ID, sess.UserID, in.Attachments, now)
	if err != nil {
		return nil, err
	}

	err = e.deps.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		ok, err := e.deps.Claims.Resubmit(txCtx, &updated, current.Status)
		if err != nil {
			return failure.Ensure(err, "resubmit claim %s", current.ID)
		}
		if !ok {
			return failure.Conflict(failure.ReasonWrongState, "claim %s changed while it was being resubmitted", current.ID)
		}
		if err := e.createAttachments(txCtx, atts); err != nil {
			return err
		}
		return e.recordTransition(txCtx, current.ID, sess.UserID, domainwf.TriggerResubmit.String(), facts.state, machine.State(), now)
	})
	if err != nil {
		e.intake.discard(ctx, atts...)
		return nil, failure.Ensure(err, "commit claim")
	}

	e.logger.Info("Claim resubmitted", "claim_id", updated.ID, "user_id", sess.UserID)
	e.emit(ctx, event.NewEvent(event.TypeClaimResubmitted, updated.ID, sess.UserID, map[string]interface{}{
		event.KeySubmitterID: updated.SubmitterID,
	}))
	e.emitStatusChanged(ctx, &updated, sess.UserID, domainwf.TriggerResubmit, facts.state, machine.State(), "")

	return &updated, nil
}

func (e *engineImpl) Review(ctx context.Context, sess session.Session, in ReviewInput) (*ReviewOutcome, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := e.authorize(sess, gate.TransitionReview); err != nil {
		return nil, err
	}

	var problems validation.Problems
	if err := problems.Merge(validation.Review(validation.ReviewDraft{
		ClaimID:  strings.TrimSpace(in.ClaimID),
		Decision: strings.TrimSpace(in.Decision),
		Note:     in.Note,
	})); err != nil {
		return nil, err
	}

	reviewer, err := e.deps.Users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, failure.Ensure(err, "load reviewer")
	}
	if reviewer == nil || reviewer.Role != entity.RoleHR {
		problems.Add("user_id", "does not resolve to an HR user")
	}
	if err := problems.Err(); err != nil {
		return nil, err
	}

	facts, err := e.load(ctx, in.ClaimID)
	if err != nil {
		return nil, err
	}
	if err := gate.Authorize(sess.Role, gate.TransitionReview, facts.gateFacts(sess.UserID)); err != nil {
		return nil, err
	}

	decision := entity.Decision(strings.TrimSpace(in.Decision))
	trigger, _ := status.TriggerFor(decision)
	machine := BuildClaimStateMachine(facts.state, facts.payment != nil)
	if err := fire(ctx, machine, trigger); err != nil {
		return nil, err
	}

	now := e.now().UTC()
	review := &entity.Review{
		ID:         uuid.NewString(),
		ClaimID:    facts.claim.ID,
		ReviewerID: sess.UserID,
		Decision:   decision,
		Note:       strings.TrimSpace(in.Note),
		CreatedAt:  now,
	}

	err = e.deps.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.compareAndSet(txCtx, facts.claim, machine.State(), failure.ReasonWrongState); err != nil {
			return err
		}
		if err := e.deps.Reviews.Create(txCtx, review); err != nil {
			return failure.Ensure(err, "create review")
		}
		return e.recordTransition(txCtx, facts.claim.ID, sess.UserID, trigger.String(), facts.state, machine.State(), now)
	})
	if err != nil {
		return nil, failure.Ensure(err, "commit review")
	}

	claim := *facts.claim
	claim.Status = machine.State().String()
	claim.UpdatedAt = now

	e.logger.Info("Claim reviewed",
		"claim_id", claim.ID,
		"review_id", review.ID,
		"decision", decision,
		"from_state", facts.state,
		"to_state", machine.State(),
	)
	e.emit(ctx, event.NewEvent(event.TypeClaimReviewed, claim.ID, sess.UserID, map[string]interface{}{
		event.KeyReviewID: review.ID,
		event.KeyNote:     review.Note,
	}))
	e.emitStatusChanged(ctx, &claim, sess.UserID, trigger, facts.state, machine.State(), review.Note)

	return &ReviewOutcome{Review: review, Claim: &claim, Status: machine.State()}, nil
}

func (e *engineImpl) Pay(ctx context.Context, sess session.Session, in PaymentInput) (*PaymentOutcome, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := e.authorize(sess, gate.TransitionPay); err != nil {
		return nil, err
	}

	draft := validation.PaymentDraft{
		ClaimID:         strings.TrimSpace(in.ClaimID),
		ReviewID:        strings.TrimSpace(in.ReviewID),
		PaymentMethodID: strings.TrimSpace(in.PaymentMethodID),
		Bank:            strings.TrimSpace(in.Bank),
		Note:            strings.TrimSpace(in.Note),
	}

	var problems validation.Problems
	if err := problems.Merge(validation.Payment(draft)); err != nil {
		return nil, err
	}
	if draft.PaymentMethodID != "" {
		method, err := e.deps.PaymentMethods.GetByID(ctx, draft.PaymentMethodID)
		if err != nil {
			return nil, failure.Ensure(err, "load payment method")
		}
		if method == nil {
			problems.Add("payment_method_id", "is not a known payment method")
		}
	}
	if draft.ClaimID == "" {
		return nil, problems.Err()
	}

	facts, err := e.load(ctx, draft.ClaimID)
	if err != nil {
		return nil, err
	}
	if err := gate.Authorize(sess.Role, gate.TransitionPay, facts.gateFacts(sess.UserID)); err != nil {
		return nil, err
	}

	approving := facts.authoritative
	if approving != nil && approving.Decision != entity.DecisionApprove {
		approving = nil
	}
	if draft.ReviewID != "" && (approving == nil || approving.ID != draft.ReviewID) {
		problems.Add("review_id", "is not the approving review of this claim")
	}
	if err := problems.Err(); err != nil {
		return nil, err
	}

	machine := BuildClaimStateMachine(facts.state, facts.payment != nil)
	if err := fire(ctx, machine, domainwf.TriggerPay); err != nil {
		return nil, err
	}

	now := e.now().UTC()
	payment := &entity.Payment{
		ID:              uuid.NewString(),
		ClaimID:         facts.claim.ID,
		PaymentMethodID: draft.PaymentMethodID,
		PayerID:         sess.UserID,
		Bank:            draft.Bank,
		Note:            draft.Note,
		CreatedAt:       now,
	}
	if approving != nil {
		payment.ReviewID = approving.ID
	}

	var proof *entity.Attachment
	if in.Proof != nil {
		proof, err = e.intake.prepare(ctx, "file", entity.OwnerPaymentProof, payment.ID, sess.UserID, *in.Proof, now)
		if err != nil {
			return nil, err
		}
		payment.ProofAttachmentID = proof.ID
	}

	err = e.deps.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.compareAndSet(txCtx, facts.claim, machine.State(), failure.ReasonAlreadyPaid); err != nil {
			return err
		}
		if err := e.deps.Payments.Create(txCtx, payment); err != nil {
			return failure.Ensure(err, "create payment")
		}
		if proof != nil {
			if err := e.deps.Attachments.Create(txCtx, proof); err != nil {
				return failure.Ensure(err, "create proof attachment")
			}
		}
		return e.recordTransition(txCtx, facts.claim.ID, sess.UserID, domainwf.TriggerPay.String(), facts.state, machine.State(), now)
	})
	if err != nil {
		e.intake.discard(ctx, proof)
		return nil, failure.Ensure(err, "commit payment")
	}

	claim := *facts.claim
	claim.Status = machine.State().String()
	claim.UpdatedAt = now

	e.logger.Info("Claim paid",
		"claim_id", claim.ID,
		"payment_id", payment.ID,
		"method", payment.PaymentMethodID,
		"amount", claim.TransactionTotal.String(),
	)
	e.emit(ctx, event.NewEvent(event.TypeClaimPaid, claim.ID, sess.UserID, map[string]interface{}{
		event.KeyPaymentID: payment.ID,
		"has_proof":        proof != nil,
	}))
	e.emitStatusChanged(ctx, &claim, sess.UserID, domainwf.TriggerPay, facts.state, machine.State(), payment.Note)

	return &PaymentOutcome{Payment: payment, Proof: proof, Claim: &claim, Status: machine.State()}, nil
}

func (e *engineImpl) GetClaim(ctx context.Context, sess session.Session, claimID string) (*ClaimView, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := sess.Validate(); err != nil {
		return nil, err
	}

	facts, err := e.load(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if err := checkVisible(sess, facts.claim); err != nil {
		return nil, err
	}

	atts, err := e.deps.Attachments.ListByOwner(ctx, entity.OwnerClaim, facts.claim.ID)
	if err != nil {
		return nil, failure.Ensure(err, "list attachments")
	}

	claimType, err := e.deps.ClaimTypes.GetByID(ctx, facts.claim.ClaimTypeID)
	if err != nil {
		return nil, failure.Ensure(err, "load claim type")
	}

	claim := *facts.claim
	claim.Attachments = atts

	return &ClaimView{
		Claim:               &claim,
		ClaimType:           claimType,
		Status:              facts.state,
		Reviews:             facts.reviews,
		AuthoritativeReview: facts.authoritative,
		Payment:             facts.payment,
		Permitted:           gate.Permitted(sess.Role, facts.gateFacts(sess.UserID)),
	}, nil
}

func (e *engineImpl) ListClaims(ctx context.Context, sess session.Session, filter entity.ClaimFilter) ([]*ClaimSummary, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := sess.Validate(); err != nil {
		return nil, err
	}
	if sess.Is(entity.RoleEmployee) {
		filter.SubmitterID = sess.UserID
	}

	var want domainwf.State
	if strings.TrimSpace(filter.Status) != "" {
		state, ok := status.Lookup(filter.Status)
		if !ok {
			return nil, failure.Validation(failure.FieldError{Field: "status", Message: "is not a known status"})
		}
		want = state
	}

	claims, err := e.deps.Claims.List(ctx, filter)
	if err != nil {
		return nil, failure.Ensure(err, "list claims")
	}

	ids := make([]string, 0, len(claims))
	for _, c := range claims {
		ids = append(ids, c.ID)
	}
	reviews, err := e.deps.Reviews.ListByClaims(ctx, ids)
	if err != nil {
		return nil, failure.Ensure(err, "list reviews")
	}

	types, err := e.deps.ClaimTypes.List(ctx)
	if err != nil {
		return nil, failure.Ensure(err, "list claim types")
	}
	typesByID := make(map[string]*entity.ClaimType, len(types))
	for _, ct := range types {
		typesByID[ct.ID] = ct
	}

	summaries := make([]*ClaimSummary, 0, len(claims))
	for _, c := range claims {
		state := status.ResolveClaim(c, reviews[c.ID])
		if want != "" && state != want {
			continue
		}
		summaries = append(summaries, &ClaimSummary{Claim: c, Status: state, ClaimType: typesByID[c.ClaimTypeID]})
	}

	return paginate(summaries, filter.Offset, filter.Limit), nil
}

func (e *engineImpl) AttachToClaim(ctx context.Context, sess session.Session, claimID string, upload entity.Upload) (*entity.Attachment, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := sess.Validate(); err != nil {
		return nil, err
	}
	if !sess.Is(entity.RoleEmployee) {
		return nil, failure.Denied(failure.ReasonWrongRole, "role %q may not attach documents to claims", sess.Role)
	}

	facts, err := e.load(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if !facts.claim.IsOwnedBy(sess.UserID) {
		return nil, failure.Denied(failure.ReasonNotOwner, "only the submitter may attach documents")
	}
	if facts.state != domainwf.StatePending && facts.state != domainwf.StateNeedsInfo {
		return nil, failure.Denied(failure.ReasonWrongState, "cannot attach documents to a claim in state %q", facts.state)
	}

	att, err := e.intake.prepare(ctx, "file", entity.OwnerClaim, facts.claim.ID, sess.UserID, upload, e.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := e.deps.Attachments.Create(ctx, att); err != nil {
		e.intake.discard(ctx, att)
		return nil, failure.Ensure(err, "create attachment")
	}

	e.logger.Info("Attachment uploaded", "claim_id", facts.claim.ID, "attachment_id", att.ID, "mime_type", att.MimeType)
	e.emit(ctx, event.NewEvent(event.TypeAttachmentUploaded, facts.claim.ID, sess.UserID, map[string]interface{}{
		"attachment_id": att.ID,
	}))

	return att, nil
}

func (e *engineImpl) OpenAttachment(ctx context.Context, sess session.Session, attachmentID string) (*entity.Attachment, []byte, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := sess.Validate(); err != nil {
		return nil, nil, err
	}

	att, err := e.deps.Attachments.GetByID(ctx, attachmentID)
	if err != nil {
		return nil, nil, failure.Ensure(err, "load attachment")
	}
	if att == nil {
		return nil, nil, failure.NotFound("attachment_id", "attachment %s not found", attachmentID)
	}

	if sess.Is(entity.RoleEmployee) {
		claimID := att.OwnerID
		if att.OwnerKind == entity.OwnerPaymentProof {
			payment, err := e.deps.Payments.GetByID(ctx, att.OwnerID)
			if err != nil {
				return nil, nil, failure.Ensure(err, "load payment")
			}
			if payment == nil {
				return nil, nil, failure.NotFound("attachment_id", "payment of attachment %s not found", attachmentID)
			}
			claimID = payment.ClaimID
		}
		claim, err := e.getClaim(ctx, claimID)
		if err != nil {
			return nil, nil, err
		}
		if err := checkVisible(sess, claim); err != nil {
			return nil, nil, err
		}
	}

	content, err := e.deps.Storage.Read(ctx, att.FilePath)
	if err != nil {
		return nil, nil, failure.Transport(err, "read attachment %s", att.ID)
	}
	return att, content, nil
}

func (e *engineImpl) History(ctx context.Context, sess session.Session, claimID string) ([]*entity.ClaimTransition, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := e.requireVisible(ctx, sess, claimID); err != nil {
		return nil, err
	}

	transitions, err := e.deps.Transitions.ListByClaim(ctx, claimID)
	if err != nil {
		return nil, failure.Ensure(err, "list transitions")
	}
	return transitions, nil
}

func (e *engineImpl) ListReviews(ctx context.Context, sess session.Session, claimID string) ([]entity.Review, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := e.requireVisible(ctx, sess, claimID); err != nil {
		return nil, err
	}

	reviews, err := e.deps.Reviews.ListByClaim(ctx, claimID)
	if err != nil {
		return nil, failure.Ensure(err, "list reviews")
	}
	return reviews, nil
}

func (e *engineImpl) ListPayments(ctx context.Context, sess session.Session) ([]*entity.PaymentRecord, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := sess.Validate(); err != nil {
		return nil, err
	}
	if !sess.Is(entity.RoleFinance) {
		return nil, failure.Denied(failure.ReasonWrongRole, "role %q may not list payments", sess.Role)
	}

	records, err := e.deps.Payments.List(ctx)
	if err != nil {
		return nil, failure.Ensure(err, "list payments")
	}
	return records, nil
}

func (e *engineImpl) PaymentMethods(ctx context.Context) ([]*entity.PaymentMethod, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	methods, err := e.deps.PaymentMethods.List(ctx)
	if err != nil {
		return nil, failure.Ensure(err, "list payment methods")
	}
	return methods, nil
}

func (e *engineImpl) ClaimTypes(ctx context.Context) ([]*entity.ClaimType, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	types, err := e.deps.ClaimTypes.List(ctx)
	if err != nil {
		return nil, failure.Ensure(err, "list claim types")
	}
	return types, nil
}

// validateClaim checks the draft fields and that its claim type is in the catalog.
// All failing fields are reported together.
func (e *engineImpl) validateClaim(ctx context.Context, d validation.ClaimDraft) (*validation.ClaimValues, error) {
	var problems validation.Problems
	values, err := validation.Claim(d)
	if err := problems.Merge(err); err != nil {
		return nil, err
	}

	if typeID := strings.TrimSpace(d.ClaimTypeID); typeID != "" {
		claimType, err := e.deps.ClaimTypes.GetByID(ctx, typeID)
		if err != nil {
			return nil, failure.Ensure(err, "load claim type")
		}
		if claimType == nil {
			problems.Add("claim_type_id", "is not a known claim type")
		}
	}
	if err := problems.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

func (e *engineImpl) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

// authorize validates the session and the role column of the gate
func (e *engineImpl) authorize(sess session.Session, t gate.Transition) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	return gate.CheckRole(sess.Role, t)
}

func (e *engineImpl) getClaim(ctx context.Context, claimID string) (*entity.Claim, error) {
	claimID = strings.TrimSpace(claimID)
	if claimID == "" {
		return nil, failure.Validation(failure.FieldError{Field: "claim_id", Message: "is required"})
	}

	claim, err := e.deps.Claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, failure.Ensure(err, "load claim %s", claimID)
	}
	if claim == nil {
		return nil, failure.NotFound("claim_id", "claim %s not found", claimID)
	}
	return claim, nil
}

func (e *engineImpl) load(ctx context.Context, claimID string) (*claimFacts, error) {
	claim, err := e.getClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}

	reviews, err := e.deps.Reviews.ListByClaim(ctx, claim.ID)
	if err != nil {
		return nil, failure.Ensure(err, "list reviews of claim %s", claim.ID)
	}

	payment, err := e.deps.Payments.GetByClaimID(ctx, claim.ID)
	if err != nil {
		return nil, failure.Ensure(err, "load payment of claim %s", claim.ID)
	}

	authoritative := status.AuthoritativeReview(claim, reviews)
	var decision *entity.Decision
	if authoritative != nil {
		d := authoritative.Decision
		decision = &d
	}

	return &claimFacts{
		claim:         claim,
		reviews:       reviews,
		authoritative: authoritative,
		payment:       payment,
		state:         status.Resolve(claim.Status, decision),
	}, nil
}

func (e *engineImpl) requireVisible(ctx context.Context, sess session.Session, claimID string) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	claim, err := e.getClaim(ctx, claimID)
	if err != nil {
		return err
	}
	return checkVisible(sess, claim)
}

// compareAndSet moves the stored status from the value that was read to next.
// A lost race is reported as a conflict with reason.
func (e *engineImpl) compareAndSet(ctx context.Context, claim *entity.Claim, next domainwf.State, reason failure.Reason) error {
	ok, err := e.deps.Claims.UpdateStatus(ctx, claim.ID, claim.Status, next.String())
	if err != nil {
		return failure.Ensure(err, "update status of claim %s", claim.ID)
	}
	if !ok {
		return failure.Conflict(reason, "claim %s changed concurrently", claim.ID)
	}
	return nil
}

func (e *engineImpl) createAttachments(ctx context.Context, atts []*entity.Attachment) error {
	for _, att := range atts {
		if err := e.deps.Attachments.Create(ctx, att); err != nil {
			return failure.Ensure(err, "create attachment %s", att.FileName)
		}
	}
	return nil
}

func (e *engineImpl) recordTransition(ctx context.Context, claimID, actorID, trigger string, from, to domainwf.State, at time.Time) error {
	err := e.deps.Transitions.Create(ctx, &entity.ClaimTransition{
		ClaimID:   claimID,
		ActorID:   actorID,
		Trigger:   trigger,
		FromState: from.String(),
		ToState:   to.String(),
		Timestamp: at,
	})
	return failure.Ensure(err, "record transition of claim %s", claimID)
}

func (e *engineImpl) emit(ctx context.Context, evt *event.Event) {
	if e.dispatcher != nil {
		e.dispatcher.DispatchAsync(ctx, evt)
	}
}

func (e *engineImpl) emitStatusChanged(ctx context.Context, claim *entity.Claim, actorID string, trigger domainwf.Trigger, from, to domainwf.State, note string) {
	e.emit(ctx, event.NewEvent(event.TypeStatusChanged, claim.ID, actorID, map[string]interface{}{
		event.KeyFromState:   from.String(),
		event.KeyToState:     to.String(),
		event.KeyTrigger:     trigger.String(),
		event.KeySubmitterID: claim.SubmitterID,
		event.KeyNote:        note,
	}))
}

func checkVisible(sess session.Session, claim *entity.Claim) error {
	if sess.Is(entity.RoleEmployee) && !claim.IsOwnedBy(sess.UserID) {
		return failure.Denied(failure.ReasonNotOwner, "claim belongs to another employee")
	}
	return nil
}

func pick(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func paginate(items []*ClaimSummary, offset, limit int) []*ClaimSummary {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []*ClaimSummary{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func derefAll(atts []*entity.Attachment) []entity.Attachment {
	out := make([]entity.Attachment, 0, len(atts))
	for _, att := range atts {
		out = append(out, *att)
	}
	return out
}

var _ ClaimEngine = (*engineImpl)(nil)
