package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/infrastructure/persistence/sqlite"
)

const claimColumns = `id, user_id, claim_type_id, desc1, desc2, description,
	transaction_date, transaction_total, status_id, submitted_at, created_at, updated_at`

// ClaimRepository implements port.ClaimRepository
type ClaimRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *sqlite.DB, logger *zap.Logger) port.ClaimRepository {
	return &ClaimRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new claim
func (r *ClaimRepository) Create(ctx context.Context, claim *entity.Claim) error {
	query := `INSERT INTO claims (` + claimColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		claim.ID,
		claim.SubmitterID,
		claim.ClaimTypeID,
		claim.Desc1,
		claim.Desc2,
		claim.Description,
		claim.TransactionDate.UTC(),
		claim.TransactionTotal,
		claim.Status,
		utc(claim.SubmittedAt),
		utc(claim.CreatedAt),
		utc(claim.UpdatedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create claim", zap.String("claim_id", claim.ID), zap.Error(err))
		return fmt.Errorf("failed to create claim: %w", err)
	}
	return nil
}

// GetByID retrieves a claim by ID
func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*entity.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = ?`

	claim, err := scanClaim(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get claim by ID", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return claim, nil
}

// List returns claims newest first, optionally restricted to one submitter
func (r *ClaimRepository) List(ctx context.Context, filter entity.ClaimFilter) ([]*entity.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims`
	var args []interface{}
	if filter.SubmitterID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, filter.SubmitterID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list claims", zap.Error(err))
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	var claims []*entity.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, claim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate claims: %w", err)
	}
	return claims, nil
}

// UpdateStatus is a compare-and-set on status_id
func (r *ClaimRepository) UpdateStatus(ctx context.Context, id, expected, next string) (bool, error) {
	query := `UPDATE claims SET status_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status_id = ?`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, next, id, expected)
	if err != nil {
		r.logger.Error("Failed to update claim status",
			zap.String("claim_id", id),
			zap.String("expected", expected),
			zap.String("next", next),
			zap.Error(err))
		return false, fmt.Errorf("failed to update claim status: %w", err)
	}
	return affectedOne(result)
}

// Resubmit replaces the editable fields under the same compare-and-set as UpdateStatus
func (r *ClaimRepository) Resubmit(ctx context.Context, claim *entity.Claim, expected string) (bool, error) {
	query := `
		UPDATE claims SET
			claim_type_id = ?, desc1 = ?, desc2 = ?, description = ?,
			transaction_date = ?, transaction_total = ?, status_id = ?,
			submitted_at = ?, updated_at = ?
		WHERE id = ? AND status_id = ?
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		claim.ClaimTypeID,
		claim.Desc1,
		claim.Desc2,
		claim.Description,
		claim.TransactionDate.UTC(),
		claim.TransactionTotal,
		claim.Status,
		utc(claim.SubmittedAt),
		utc(claim.UpdatedAt),
		claim.ID,
		expected,
	)
	if err != nil {
		r.logger.Error("Failed to resubmit claim", zap.String("claim_id", claim.ID), zap.Error(err))
		return false, fmt.Errorf("failed to resubmit claim: %w", err)
	}
	return affectedOne(result)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClaim(row rowScanner) (*entity.Claim, error) {
	var c entity.Claim
	err := row.Scan(
		&c.ID,
		&c.SubmitterID,
		&c.ClaimTypeID,
		&c.Desc1,
		&c.Desc2,
		&c.Description,
		&c.TransactionDate,
		&c.TransactionTotal,
		&c.Status,
		&c.SubmittedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func affectedOne(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

var _ port.ClaimRepository = (*ClaimRepository)(nil)
