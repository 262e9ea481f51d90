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

const reviewColumns = `id, claim_id, user_id, decision, description, created_at`

// ReviewRepository implements port.ReviewRepository
type ReviewRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *sqlite.DB, logger *zap.Logger) port.ReviewRepository {
	return &ReviewRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a review
func (r *ReviewRepository) Create(ctx context.Context, review *entity.Review) error {
	query := `INSERT INTO reviews (` + reviewColumns + `) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		review.ID,
		review.ClaimID,
		review.ReviewerID,
		review.Decision,
		review.Note,
		utc(review.CreatedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create review", zap.String("claim_id", review.ClaimID), zap.Error(err))
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// GetByID retrieves a review by ID
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*entity.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = ?`

	review, err := scanReview(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get review by ID", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return &review, nil
}

// ListByClaim returns the reviews of a claim, oldest first
func (r *ReviewRepository) ListByClaim(ctx context.Context, claimID string) ([]entity.Review, error) {
	byClaim, err := r.ListByClaims(ctx, []string{claimID})
	if err != nil {
		return nil, err
	}
	return byClaim[claimID], nil
}

// ListByClaims returns the reviews of several claims keyed by claim id
func (r *ReviewRepository) ListByClaims(ctx context.Context, claimIDs []string) (map[string][]entity.Review, error) {
	result := make(map[string][]entity.Review, len(claimIDs))
	if len(claimIDs) == 0 {
		return result, nil
	}

	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE claim_id IN (` + placeholders(len(claimIDs)) + `)
		ORDER BY created_at ASC, id ASC`
	args := make([]interface{}, len(claimIDs))
	for i, id := range claimIDs {
		args[i] = id
	}

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list reviews", zap.Int("claims", len(claimIDs)), zap.Error(err))
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		result[review.ClaimID] = append(result[review.ClaimID], review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}
	return result, nil
}

func scanReview(row rowScanner) (entity.Review, error) {
	var rv entity.Review
	err := row.Scan(
		&rv.ID,
		&rv.ClaimID,
		&rv.ReviewerID,
		&rv.Decision,
		&rv.Note,
		&rv.CreatedAt,
	)
	return rv, err
}

var _ port.ReviewRepository = (*ReviewRepository)(nil)
