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

// PaymentMethodRepository implements port.PaymentMethodRepository
type PaymentMethodRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewPaymentMethodRepository creates a new payment method repository
func NewPaymentMethodRepository(db *sqlite.DB, logger *zap.Logger) port.PaymentMethodRepository {
	return &PaymentMethodRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a payment method by ID
func (r *PaymentMethodRepository) GetByID(ctx context.Context, id string) (*entity.PaymentMethod, error) {
	query := `SELECT id, method, created_at FROM payment_methods WHERE id = ?`

	var m entity.PaymentMethod
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, id).Scan(&m.ID, &m.Method, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get payment method", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get payment method: %w", err)
	}
	return &m, nil
}

// List returns every payment method ordered by name
func (r *PaymentMethodRepository) List(ctx context.Context) ([]*entity.PaymentMethod, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, `SELECT id, method, created_at FROM payment_methods ORDER BY method ASC`)
	if err != nil {
		r.logger.Error("Failed to list payment methods", zap.Error(err))
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	defer rows.Close()

	var methods []*entity.PaymentMethod
	for rows.Next() {
		var m entity.PaymentMethod
		if err := rows.Scan(&m.ID, &m.Method, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment method: %w", err)
		}
		methods = append(methods, &m)
	}
	return methods, rows.Err()
}

var _ port.PaymentMethodRepository = (*PaymentMethodRepository)(nil)
