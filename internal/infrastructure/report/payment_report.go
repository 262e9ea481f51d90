package report

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
)

const (
	// SheetName is the worksheet holding the payment rows
	SheetName = "Payments"

	paidAtLayout = "2006-01-02 15:04:05"
	totalLabel   = "Total"
)

var headers = []string{
	"Payment ID",
	"Claim ID",
	"Submitter",
	"Amount",
	"Method",
	"Bank",
	"Note",
	"Paid At",
}

// ExcelReporter renders payment records as an .xlsx workbook
type ExcelReporter struct {
	logger *zap.Logger
}

// NewExcelReporter creates a new payment report renderer
func NewExcelReporter(logger *zap.Logger) *ExcelReporter {
	return &ExcelReporter{logger: logger}
}

// Render writes one row per payment followed by a total row
func (r *ExcelReporter) Render(ctx context.Context, records []*entity.PaymentRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	for i, h := range headers {
		if err := r.setCell(f, i+1, 1, h); err != nil {
			return nil, err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(SheetName, "A1", lastHeader, bold); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	total := decimal.Zero
	row := 2
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		amount, err := decimal.NewFromString(rec.TransactionTotal)
		if err != nil {
			return nil, fmt.Errorf("payment %s has invalid amount %q: %w", rec.ID, rec.TransactionTotal, err)
		}
		total = total.Add(amount)

		values := []interface{}{
			rec.ID,
			rec.ClaimID,
			rec.SubmitterID,
			amount.InexactFloat64(),
			rec.Method,
			rec.Bank,
			rec.Note,
			rec.CreatedAt.UTC().Format(paidAtLayout),
		}
		for col, v := range values {
			if err := r.setCell(f, col+1, row, v); err != nil {
				return nil, err
			}
		}
		row++
	}

	if err := r.setCell(f, 1, row, totalLabel); err != nil {
		return nil, err
	}
	if err := r.setCell(f, 4, row, total.InexactFloat64()); err != nil {
		return nil, err
	}
	totalStart, _ := excelize.CoordinatesToCellName(1, row)
	totalEnd, _ := excelize.CoordinatesToCellName(len(headers), row)
	if err := f.SetCellStyle(SheetName, totalStart, totalEnd, bold); err != nil {
		return nil, fmt.Errorf("failed to style total: %w", err)
	}

	if err := f.SetColWidth(SheetName, "A", "H", 20); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	r.logger.Info("Payment report rendered",
		zap.Int("payments", len(records)),
		zap.String("total", total.StringFixed(2)))
	return buf.Bytes(), nil
}

func (r *ExcelReporter) setCell(f *excelize.File, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("invalid cell %d,%d: %w", col, row, err)
	}
	if err := f.SetCellValue(SheetName, cell, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", cell, err)
	}
	return nil
}

var _ port.PaymentReporter = (*ExcelReporter)(nil)
