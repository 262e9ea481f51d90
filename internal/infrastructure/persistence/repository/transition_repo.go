package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/infrastructure/persistence/sqlite"
)

// TransitionRepository implements port.TransitionRepository
type TransitionRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewTransitionRepository creates a new transition history repository
func NewTransitionRepository(db *sqlite.DB, logger *zap.Logger) port.TransitionRepository {
	return &TransitionRepository{
		db:     db,
		logger: logger,
	}
}

// Create records a transition and sets its ID
func (r *TransitionRepository) Create(ctx context.Context, t *entity.ClaimTransition) error {
	query := `
		INSERT INTO claim_transitions (claim_id, actor_id, trigger_name, from_state, to_state, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		t.ClaimID,
		t.ActorID,
		t.Trigger,
		t.FromState,
		t.ToState,
		utc(t.Timestamp),
	)
	if err != nil {
		r.logger.Error("Failed to create transition", zap.String("claim_id", t.ClaimID), zap.Error(err))
		return fmt.Errorf("failed to create transition: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	t.ID = id
	return nil
}

// ListByClaim returns the history of a claim, oldest first
func (r *TransitionRepository) ListByClaim(ctx context.Context, claimID string) ([]*entity.ClaimTransition, error) {
	query := `
		SELECT id, claim_id, actor_id, trigger_name, from_state, to_state, created_at
		FROM claim_transitions
		WHERE claim_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, claimID)
	if err != nil {
		r.logger.Error("Failed to list transitions", zap.String("claim_id", claimID), zap.Error(err))
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}
	defer rows.Close()

	var transitions []*entity.ClaimTransition
	for rows.Next() {
		var t entity.ClaimTransition
		if err := rows.Scan(&t.ID, &t.ClaimID, &t.ActorID, &t.Trigger, &t.FromState, &t.ToState, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		transitions = append(transitions, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transitions: %w", err)
	}
	return transitions, nil
}

var _ port.TransitionRepository = (*TransitionRepository)(nil)
