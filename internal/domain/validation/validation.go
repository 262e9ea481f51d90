// Package validation checks field-level invariants of claims, reviews and
// payments. A failing check reports every failing field at once.
package validation

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/domain/failure"
)

// Text length limits
const (
	MaxDescLength        = 255
	MaxDescriptionLength = 4000
	MaxBankLength        = 100
	MaxNoteLength        = 1000
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	mustRegister(v, "positive_decimal", func(fl validator.FieldLevel) bool {
		_, err := ParseAmount(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "calendar_date", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "decision", func(fl validator.FieldLevel) bool {
		return entity.Decision(fl.Field().String()).IsValid()
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %s: %v", tag, err))
	}
}

// ClaimDraft is the caller-supplied content of a claim submission or resubmission
type ClaimDraft struct {
	SubmitterID      string `json:"user_id" validate:"required"`
	ClaimTypeID      string `json:"claim_type_id" validate:"required"`
	Desc1            string `json:"desc1" validate:"required,max=255"`
	Desc2            string `json:"desc2" validate:"max=255"`
	Description      string `json:"description" validate:"max=4000"`
	TransactionDate  string `json:"transaction_date" validate:"required,calendar_date"`
	TransactionTotal string `json:"transaction_total" validate:"required,positive_decimal"`
}

// ClaimValues are the parsed typed values of a valid ClaimDraft
type ClaimValues struct {
	TransactionDate  time.Time
	TransactionTotal decimal.Decimal
}

// ReviewDraft is the caller-supplied content of a review
type ReviewDraft struct {
	ClaimID  string `json:"claim_id" validate:"required"`
	Decision string `json:"decision" validate:"required,decision"`
	Note     string `json:"description" validate:"max=1000"`
}

// PaymentDraft is the caller-supplied content of a payment
type PaymentDraft struct {
	ClaimID         string `json:"claim_id" validate:"required"`
	ReviewID        string `json:"review_id"`
	PaymentMethodID string `json:"payment_method_id" validate:"required"`
	Bank            string `json:"bank" validate:"max=100"`
	Note            string `json:"note" validate:"max=1000"`
}

// Problems accumulates field errors from several checks
type Problems []failure.FieldError

// Add records a failing field
func (p *Problems) Add(field, message string) {
	*p = append(*p, failure.FieldError{Field: field, Message: message})
}

// Merge appends the field errors carried by err, if it is a validation failure.
// Any other non-nil error is returned unchanged.
func (p *Problems) Merge(err error) error {
	if err == nil {
		return nil
	}
	fe, ok := failure.As(err)
	if !ok || fe.Kind != failure.KindValidation {
		return err
	}
	*p = append(*p, fe.Fields...)
	return nil
}

// Err returns nil when no problems were recorded, or one validation failure listing them all
func (p Problems) Err() error {
	if len(p) == 0 {
		return nil
	}
	return failure.Validation(p...)
}

// Struct validates any struct carrying validate tags
func Struct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return failure.Transport(err, "validate %T", v)
	}

	var problems Problems
	for _, fe := range verrs {
		problems.Add(fe.Field(), describe(fe))
	}
	return problems.Err()
}

// Claim validates a claim draft and returns its parsed values
func Claim(d ClaimDraft) (*ClaimValues, error) {
	d.ClaimTypeID = strings.TrimSpace(d.ClaimTypeID)
	d.Desc1 = strings.TrimSpace(d.Desc1)
	d.TransactionDate = strings.TrimSpace(d.TransactionDate)
	d.TransactionTotal = strings.TrimSpace(d.TransactionTotal)

	if err := Struct(d); err != nil {
		return nil, err
	}

	date, _ := ParseDate(d.TransactionDate)
	amount, _ := ParseAmount(d.TransactionTotal)
	return &ClaimValues{TransactionDate: date, TransactionTotal: amount}, nil
}

// Review validates a review draft
func Review(d ReviewDraft) error {
	return Struct(d)
}

// Payment validates a payment draft
func Payment(d PaymentDraft) error {
	return Struct(d)
}

// ParseAmount parses a strictly positive decimal amount
func ParseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount %s is not positive", amount)
	}
	return amount, nil
}

// ParseDate parses a YYYY-MM-DD calendar date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(entity.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "positive_decimal":
		return "must be a positive decimal amount"
	case "calendar_date":
		return "must be a valid YYYY-MM-DD date"
	case "decision":
		return "must be one of approve, reject, needs_info"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
