package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/domain/failure"
	"github.com/garyjia/claims-workflow/internal/infrastructure/persistence/sqlite"
)

const paymentColumns = `p.id, p.claim_id, p.review_id, p.payment_method_id, p.user_id,
	p.bank, p.note, p.proof_attachment_id, p.created_at`

// PaymentRepository implements port.PaymentRepository
type PaymentRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *sqlite.DB, logger *zap.Logger) port.PaymentRepository {
	return &PaymentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a payment. The UNIQUE(claim_id) constraint turns a second
// payment of the same claim into a duplicate-payment conflict.
func (r *PaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (
			id, claim_id, review_id, payment_method_id, user_id,
			bank, note, proof_attachment_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		payment.ID,
		payment.ClaimID,
		nullString(payment.ReviewID),
		payment.PaymentMethodID,
		payment.PayerID,
		payment.Bank,
		payment.Note,
		nullString(payment.ProofAttachmentID),
		utc(payment.CreatedAt),
	)
	if sqlite.IsUniqueViolation(err) {
		r.logger.Info("Rejected duplicate payment", zap.String("claim_id", payment.ClaimID))
		return failure.Conflict(failure.ReasonDuplicatePayment, "claim %s already has a payment", payment.ClaimID)
	}
	if err != nil {
		r.logger.Error("Failed to create payment", zap.String("claim_id", payment.ClaimID), zap.Error(err))
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetByID retrieves a payment by ID
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*entity.Payment, error) {
	return r.getOne(ctx, "p.id", id)
}

// GetByClaimID retrieves the payment of a claim
func (r *PaymentRepository) GetByClaimID(ctx context.Context, claimID string) (*entity.Payment, error) {
	return r.getOne(ctx, "p.claim_id", claimID)
}

func (r *PaymentRepository) getOne(ctx context.Context, column, value string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p WHERE ` + column + ` = ?`

	payment, err := scanPayment(r.db.Executor(ctx).QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get payment", zap.String(column, value), zap.Error(err))
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return payment, nil
}

// List returns every payment joined with its claim and method, newest first
func (r *PaymentRepository) List(ctx context.Context) ([]*entity.PaymentRecord, error) {
	query := `
		SELECT ` + paymentColumns + `, c.user_id, c.transaction_total, m.method
		FROM payments p
		JOIN claims c ON c.id = p.claim_id
		JOIN payment_methods m ON m.id = p.payment_method_id
		ORDER BY p.created_at DESC, p.id DESC
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list payments", zap.Error(err))
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var records []*entity.PaymentRecord
	for rows.Next() {
		var rec entity.PaymentRecord
		var reviewID, proofID sql.NullString
		err := rows.Scan(
			&rec.ID,
			&rec.ClaimID,
			&reviewID,
			&rec.PaymentMethodID,
			&rec.PayerID,
			&rec.Bank,
			&rec.Note,
			&proofID,
			&rec.CreatedAt,
			&rec.SubmitterID,
			&rec.TransactionTotal,
			&rec.Method,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		rec.ReviewID = reviewID.String
		rec.ProofAttachmentID = proofID.String
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return records, nil
}

func scanPayment(row rowScanner) (*entity.Payment, error) {
	var p entity.Payment
	var reviewID, proofID sql.NullString
	err := row.Scan(
		&p.ID,
		&p.ClaimID,
		&reviewID,
		&p.PaymentMethodID,
		&p.PayerID,
		&p.Bank,
		&p.Note,
		&proofID,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.ReviewID = reviewID.String
	p.ProofAttachmentID = proofID.String
	return &p, nil
}

var _ port.PaymentRepository = (*PaymentRepository)(nil)
