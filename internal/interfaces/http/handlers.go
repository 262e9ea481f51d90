package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/claims-workflow/internal/application/workflow"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/domain/failure"
)

const (
	fileField    = "file"
	xlsxMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services      Services
	maxUploadSize int64
	logger        Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, maxUploadSize int64, logger Logger) *Handlers {
	return &Handlers{
		services:      services,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// Amount accepts a JSON string or number and keeps its exact text
type Amount string

// UnmarshalJSON implements json.Unmarshaler
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*a = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a string or a number")
	}
	*a = Amount(n.String())
	return nil
}

// ClaimRequest is the body of submit and resubmit
type ClaimRequest struct {
	ClaimTypeID      string `json:"claim_type_id"`
	Desc1            string `json:"desc1"`
	Desc2            string `json:"desc2"`
	Description      string `json:"description"`
	TransactionDate  string `json:"transaction_date"`
	TransactionTotal Amount `json:"transaction_total"`
}

// ReviewRequest is the body of POST /api/reviews
type ReviewRequest struct {
	ClaimID     string `json:"claim_id"`
	Decision    string `json:"decision"`
	Description string `json:"description"`
}

// PaymentRequest is the body of POST /api/payments
type PaymentRequest struct {
	ClaimID         string `json:"claim_id"`
	ReviewID        string `json:"review_id"`
	PaymentMethodID string `json:"payment_method_id"`
	Bank            string `json:"bank"`
	Note            string `json:"note"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	ok(c, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	})
}

// SubmitClaim handles POST /api/claims
func (h *Handlers) SubmitClaim(c *gin.Context) {
	req, uploads, err := h.bindClaim(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	claim, err := h.services.Engine.Submit(c.Request.Context(), currentSession(c), workflow.SubmitClaimInput{
		ClaimTypeID:      req.ClaimTypeID,
		Desc1:            req.Desc1,
		Desc2:            req.Desc2,
		Description:      req.Description,
		TransactionDate:  req.TransactionDate,
		TransactionTotal: string(req.TransactionTotal),
		Attachments:      uploads,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	ok(c, http.StatusCreated, claim)
}

// ResubmitClaim handles POST /api/claims/:id/resubmit
func (h *Handlers) ResubmitClaim(c *gin.Context) {
	req, uploads, err := h.bindClaim(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	claim, err := h.services.Engine.Resubmit(c.Request.Context(), currentSession(c), c.Param("id"), workflow.ResubmitInput{
		ClaimTypeID:      req.ClaimTypeID,
		Desc1:            req.Desc1,
		Desc2:            req.Desc2,
		Description:      req.Description,
		TransactionDate:  req.TransactionDate,
		TransactionTotal: string(req.TransactionTotal),
		Attachments:      uploads,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	ok(c, http.StatusOK, claim)
}

// ListClaims handles GET /api/claims
func (h *Handlers) ListClaims(c *gin.Context) {
	filter := entity.ClaimFilter{
		SubmitterID: c.Query("submitter"),
		Status:      c.Query("status"),
	}

	var fields []failure.FieldError
	var err error
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		fields = append(fields, failure.FieldError{Field: "limit", Message: "must be a non-negative integer"})
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		fields = append(fields, failure.FieldError{Field: "offset", Message: "must be a non-negative integer"})
	}
	if len(fields) > 0 {
		writeError(c, h.logger, failure.Validation(fields...))
		return
	}

	claims, err := h.services.Engine.ListClaims(c.Request.Context(), currentSession(c), filter)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if claims == nil {
		claims = []*workflow.ClaimSummary{}
	}
	ok(c, http.StatusOK, claims)
}

// GetClaim handles GET /api/claims/:id
func (h *Handlers) GetClaim(c *gin.Context) {
	view, err := h.services.Engine.GetClaim(c.Request.Context(), currentSession(c), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	ok(c, http.StatusOK, view)
}

// AttachToClaim handles POST /api/claims/:id/attachments
func (h *Handlers) AttachToClaim(c *gin.Context) {
	fh, err := c.FormFile(fileField)
	if err != nil {
		writeError(c, h.logger, failure.Validation(failure.FieldError{Field: fileField, Message: "is required"}))
		return
	}
	upload, err := h.readUpload(fh)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	att, err := h.services.Engine.AttachToClaim(c.Request.Context(), currentSession(c), c.Param("id"), upload)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	ok(c, http.StatusCreated, att)
}

// ListReviews handles GET /api/claims/:id/reviews
func (h *Handlers) ListReviews(c *gin.Context) {
	reviews, err := h.services.Engine.ListReviews(c.Request.Context(), currentSession(c), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if reviews == nil {
		reviews = []entity.Review{}
	}
	ok(c, http.StatusOK, reviews)
}

// History handles GET /api/claims/:id/history
func (h *Handlers) History(c *gin.Context) {
	history, err := h.services.Engine.History(c.Request.Context(), currentSession(c), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if history == nil {
		history = []*entity.ClaimTransition{}
	}
	ok(c, http.StatusOK, history)
}

// Advise handles POST /api/claims/:id/advice
func (h *Handlers) Advise(c *gin.Context) {
	advice, err := h.services.Advice.Advise(c.Request.Context(), currentSession(c), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	ok(c, http.StatusOK, advice)
}

// Review handles POST /api/reviews
func (h *Handlers) Review(c *gin.Context) {
	var req ReviewRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}

	outcome, err := h.services.Engine.Review(c.Request.Context(), currentSession(c), workflow.ReviewInput{
		ClaimID:  req.ClaimID,
		Decision: req.Decision,
		Note:     req.Description,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	ok(c, http.StatusCreated, outcome)
}

// Pay handles POST /api/payments, as JSON or multipart with a proof file
func (h *Handlers) Pay(c *gin.Context) {
	var req PaymentRequest
	var proof *entity.Upload

	if isMultipart(c) {
		req = PaymentRequest{
			ClaimID:         c.PostForm("claim_id"),
			ReviewID:        c.PostForm("review_id"),
			PaymentMethodID: c.PostForm("payment_method_id"),
			Bank:            c.PostForm("bank"),
			Note:            c.PostForm("note"),
		}
		if fh, err := c.FormFile(fileField); err == nil {
			upload, err := h.readUpload(fh)
			if err != nil {
				writeError(c, h.logger, err)
				return
			}
			proof = &upload
		}
	} else if err := bindJSON(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}

	outcome, err := h.services.Engine.Pay(c.Request.Context(), currentSession(c), workflow.PaymentInput{
		ClaimID:         req.ClaimID,
		ReviewID:        req.ReviewID,
		PaymentMethodID: req.PaymentMethodID,
		Bank:            req.Bank,
		Note:            req.Note,
		Proof:           proof,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	ok(c, http.StatusCreated, outcome)
}

// ListPayments handles GET /api/payments
func (h *Handlers) ListPayments(c *gin.Context) {
	records, err := h.services.Engine.ListPayments(c.Request.Context(), currentSession(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if records == nil {
		records = []*entity.PaymentRecord{}
	}
	ok(c, http.StatusOK, records)
}

// ExportPayments handles GET /api/payments/export
func (h *Handlers) ExportPayments(c *gin.Context) {
	data, err := h.services.Reports.ExportPayments(c.Request.Context(), currentSession(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	name := fmt.Sprintf("payments-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Data(http.StatusOK, xlsxMimeType, data)
}

// PaymentMethods handles GET /api/payment-methods
func (h *Handlers) PaymentMethods(c *gin.Context) {
	methods, err := h.services.Engine.PaymentMethods(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if methods == nil {
		methods = []*entity.PaymentMethod{}
	}
	ok(c, http.StatusOK, methods)
}

// ClaimTypes handles GET /api/claim-types
func (h *Handlers) ClaimTypes(c *gin.Context) {
	types, err := h.services.Engine.ClaimTypes(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if types == nil {
		types = []*entity.ClaimType{}
	}
	ok(c, http.StatusOK, types)
}

// DownloadAttachment handles GET /api/attachments/:id
func (h *Handlers) DownloadAttachment(c *gin.Context) {
	att, content, err := h.services.Engine.OpenAttachment(c.Request.Context(), currentSession(c), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": att.FileName}))
	c.Data(http.StatusOK, att.MimeType, content)
}

// bindClaim reads a claim body from JSON or from a multipart form whose
// files are sent under "file"
func (h *Handlers) bindClaim(c *gin.Context) (*ClaimRequest, []entity.Upload, error) {
	var req ClaimRequest
	if !isMultipart(c) {
		if err := bindJSON(c, &req); err != nil {
			return nil, nil, err
		}
		return &req, nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, failure.Validation(failure.FieldError{Field: "body", Message: "malformed multipart form"})
	}
	req = ClaimRequest{
		ClaimTypeID:      c.PostForm("claim_type_id"),
		Desc1:            c.PostForm("desc1"),
		Desc2:            c.PostForm("desc2"),
		Description:      c.PostForm("description"),
		TransactionDate:  c.PostForm("transaction_date"),
		TransactionTotal: Amount(strings.TrimSpace(c.PostForm("transaction_total"))),
	}

	var uploads []entity.Upload
	for _, fh := range form.File[fileField] {
		upload, err := h.readUpload(fh)
		if err != nil {
			return nil, nil, err
		}
		uploads = append(uploads, upload)
	}
	return &req, uploads, nil
}

// readUpload reads at most one byte past the size limit so the engine can
// reject oversized files with a field error
func (h *Handlers) readUpload(fh *multipart.FileHeader) (entity.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return entity.Upload{}, failure.Validation(failure.FieldError{Field: fileField, Message: "could not be read"})
	}
	defer f.Close()

	var r io.Reader = f
	if h.maxUploadSize > 0 {
		r = io.LimitReader(f, h.maxUploadSize+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return entity.Upload{}, failure.Validation(failure.FieldError{Field: fileField, Message: "could not be read"})
	}
	return entity.Upload{FileName: fh.Filename, Content: content}, nil
}

func bindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return failure.Validation(failure.FieldError{Field: "body", Message: err.Error()})
	}
	return nil
}

func isMultipart(c *gin.Context) bool {
	return c.ContentType() == "multipart/form-data"
}

// queryInt parses an optional non-negative integer query parameter
func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%s is negative", key)
	}
	return n, nil
}
