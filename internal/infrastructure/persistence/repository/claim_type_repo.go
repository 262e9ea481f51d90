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

// ClaimTypeRepository implements port.ClaimTypeRepository
type ClaimTypeRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewClaimTypeRepository creates a new claim type repository
func NewClaimTypeRepository(db *sqlite.DB, logger *zap.Logger) port.ClaimTypeRepository {
	return &ClaimTypeRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a claim type, or nil when the id is not in the catalog
func (r *ClaimTypeRepository) GetByID(ctx context.Context, id string) (*entity.ClaimType, error) {
	query := `SELECT id, name, description, created_at FROM claim_types WHERE id = ?`

	var ct entity.ClaimType
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, id).Scan(&ct.ID, &ct.Name, &ct.Description, &ct.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get claim type", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get claim type: %w", err)
	}
	return &ct, nil
}

// List returns the catalog ordered by id
func (r *ClaimTypeRepository) List(ctx context.Context) ([]*entity.ClaimType, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, `SELECT id, name, description, created_at FROM claim_types ORDER BY id ASC`)
	if err != nil {
		r.logger.Error("Failed to list claim types", zap.Error(err))
		return nil, fmt.Errorf("failed to list claim types: %w", err)
	}
	defer rows.Close()

	var types []*entity.ClaimType
	for rows.Next() {
		var ct entity.ClaimType
		if err := rows.Scan(&ct.ID, &ct.Name, &ct.Description, &ct.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan claim type: %w", err)
		}
		types = append(types, &ct)
	}
	return types, rows.Err()
}

var _ port.ClaimTypeRepository = (*ClaimTypeRepository)(nil)
