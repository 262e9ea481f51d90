package service

import (
	"context"

	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/application/session"
	"github.com/garyjia/claims-workflow/internal/application/workflow"
	"github.com/garyjia/claims-workflow/internal/domain/failure"
)

// ReportService renders finance reports
type ReportService interface {
	ExportPayments(ctx context.Context, sess session.Session) ([]byte, error)
}

type reportServiceImpl struct {
	engine   workflow.ClaimEngine
	reporter port.PaymentReporter
	logger   Logger
}

// NewReportService creates a new ReportService
func NewReportService(engine workflow.ClaimEngine, reporter port.PaymentReporter, logger Logger) ReportService {
	return &reportServiceImpl{
		engine:   engine,
		reporter: reporter,
		logger:   logger,
	}
}

// ExportPayments renders every payment. Access follows ListPayments.
func (s *reportServiceImpl) ExportPayments(ctx context.Context, sess session.Session) ([]byte, error) {
	records, err := s.engine.ListPayments(ctx, sess)
	if err != nil {
		return nil, err
	}

	content, err := s.reporter.Render(ctx, records)
	if err != nil {
		s.logger.Error("Failed to render payment report", "error", err, "payments", len(records))
		return nil, failure.Ensure(err, "render payment report")
	}

	s.logger.Info("Payment report exported", "user_id", sess.UserID, "payments", len(records), "bytes", len(content))
	return content, nil
}
