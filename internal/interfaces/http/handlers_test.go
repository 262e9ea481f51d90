package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/application/service"
	"github.com/garyjia/claims-workflow/internal/application/session"
	"github.com/garyjia/claims-workflow/internal/application/workflow"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/domain/failure"
	domainwf "github.com/garyjia/claims-workflow/internal/domain/workflow"
)

const (
	employeeToken = "emp-1:employee"
	hrToken       = "hr-1:hr"
	financeToken  = "fin-1:finance"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorBody      `json:"error"`
}

func newTestServer(engine *mockEngine, opts ...func(*Services)) *Server {
	services := Services{
		Engine:   engine,
		Identity: &mockIdentity{},
		Tokens:   mockTokens{},
		Advice:   &mockAdvice{},
		Reports:  &mockReports{},
	}
	for _, opt := range opts {
		opt(&services)
	}
	cfg := DefaultServerConfig()
	cfg.MaxUploadSize = 64
	return NewServer(cfg, services, nopLogger{})
}

func do(t *testing.T, srv *Server, method, path, token string, body *bytes.Buffer, contentType string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

type formFile struct {
	name    string
	content []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(fileField, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(&mockEngine{})
	w, env := do(t, srv, http.MethodGet, "/health", "", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), `"status":"healthy"`)
}

func TestAuthMiddleware(t *testing.T) {
	engine := &mockEngine{methodsFunc: func(ctx context.Context) ([]*entity.PaymentMethod, error) {
		return []*entity.PaymentMethod{{ID: "cash", Method: "Cash"}}, nil
	}}
	srv := newTestServer(engine, func(s *Services) {
		s.Identity = &mockIdentity{denied: map[string]error{
			"ghost": failure.Denied(failure.ReasonUnauthenticated, "user not found"),
			"hr-1":  failure.Denied(failure.ReasonWrongRole, "role mismatch"),
		}}
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantReason failure.Reason
	}{
		{"missing header", "", http.StatusUnauthorized, failure.ReasonUnauthenticated},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, failure.ReasonUnauthenticated},
		{"invalid token", "Bearer nonsense", http.StatusUnauthorized, failure.ReasonUnauthenticated},
		{"unknown user", "Bearer ghost:employee", http.StatusUnauthorized, failure.ReasonUnauthenticated},
		{"role mismatch", "Bearer hr-1:finance", http.StatusForbidden, failure.ReasonWrongRole},
		{"valid", "bearer " + employeeToken, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/payment-methods", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			srv.Router().ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			var env envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			if tt.wantReason == "" {
				assert.True(t, env.Success)
				return
			}
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantReason, env.Error.Reason)
		})
	}
}

func TestSubmitClaim_JSON(t *testing.T) {
	tests := []struct {
		name      string
		total     interface{}
		wantTotal string
	}{
		{"number", 500000, "500000"},
		{"decimal number", 500000.50, "500000.5"},
		{"string", " 120000.25 ", "120000.25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got workflow.SubmitClaimInput
			var gotSess session.Session
			engine := &mockEngine{submitFunc: func(ctx context.Context, sess session.Session, in workflow.SubmitClaimInput) (*entity.Claim, error) {
				got, gotSess = in, sess
				return &entity.Claim{ID: "clm-1", Status: "pending"}, nil
			}}
			srv := newTestServer(engine)

			body := jsonBody(t, map[string]interface{}{
				"claim_type_id":     "travel",
				"desc1":             "Client visit",
				"transaction_date":  "2025-01-20",
				"transaction_total": tt.total,
			})
			w, env := do(t, srv, http.MethodPost, "/api/claims", employeeToken, body, "application/json")

			assert.Equal(t, http.StatusCreated, w.Code)
			assert.True(t, env.Success)
			assert.Equal(t, tt.wantTotal, got.TransactionTotal)
			assert.Equal(t, "travel", got.ClaimTypeID)
			assert.Equal(t, session.Session{UserID: "emp-1", Role: entity.RoleEmployee}, gotSess)
		})
	}
}

func TestSubmitClaim_RejectsBadBodies(t *testing.T) {
	srv := newTestServer(&mockEngine{})

	w, env := do(t, srv, http.MethodPost, "/api/claims", employeeToken, bytes.NewBufferString(`{"desc1":`), "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, failure.KindValidation, env.Error.Kind)
	assert.Equal(t, "body", env.Error.Fields[0].Field)

	w, _ = do(t, srv, http.MethodPost, "/api/claims", employeeToken, bytes.NewBufferString(`{"transaction_total":true}`), "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSubmitClaim_Multipart(t *testing.T) {
	var got workflow.SubmitClaimInput
	engine := &mockEngine{submitFunc: func(ctx context.Context, sess session.Session, in workflow.SubmitClaimInput) (*entity.Claim, error) {
		got = in
		return &entity.Claim{ID: "clm-1"}, nil
	}}
	srv := newTestServer(engine)

	body, ct := multipartBody(t,
		map[string]string{"claim_type_id": "travel", "desc1": "Taxi", "transaction_date": "2025-01-20", "transaction_total": "500000"},
		formFile{name: "a.png", content: []byte("png-bytes")},
		formFile{name: "b.pdf", content: bytes.Repeat([]byte("x"), 100)},
	)
	w, _ := do(t, srv, http.MethodPost, "/api/claims", employeeToken, body, ct)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "500000", got.TransactionTotal)
	require.Len(t, got.Attachments, 2)
	assert.Equal(t, "a.png", got.Attachments[0].FileName)
	assert.Equal(t, []byte("png-bytes"), got.Attachments[0].Content)
	// truncated one byte past the limit so the engine reports the size
	assert.Len(t, got.Attachments[1].Content, 65)
}

func TestResubmitClaim(t *testing.T) {
	var gotID string
	var got workflow.ResubmitInput
	engine := &mockEngine{resubmitFunc: func(ctx context.Context, sess session.Session, claimID string, in workflow.ResubmitInput) (*entity.Claim, error) {
		gotID, got = claimID, in
		return &entity.Claim{ID: claimID}, nil
	}}
	srv := newTestServer(engine)

	w, _ := do(t, srv, http.MethodPost, "/api/claims/clm-9/resubmit", employeeToken, jsonBody(t, map[string]string{"desc2": "receipt attached"}), "application/json")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "clm-9", gotID)
	assert.Equal(t, "receipt attached", got.Desc2)
	assert.Empty(t, got.TransactionTotal)
}

func TestListClaims(t *testing.T) {
	var got entity.ClaimFilter
	engine := &mockEngine{listClaimsFunc: func(ctx context.Context, sess session.Session, filter entity.ClaimFilter) ([]*workflow.ClaimSummary, error) {
		got = filter
		return nil, nil
	}}
	srv := newTestServer(engine)

	w, env := do(t, srv, http.MethodGet, "/api/claims?submitter=emp-2&status=Approved&limit=5&offset=10", hrToken, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", string(env.Data))
	assert.Equal(t, entity.ClaimFilter{SubmitterID: "emp-2", Status: "Approved", Limit: 5, Offset: 10}, got)

	w, env = do(t, srv, http.MethodGet, "/api/claims?limit=-1&offset=x", hrToken, nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, env.Error)
	require.Len(t, env.Error.Fields, 2)
	assert.Equal(t, "limit", env.Error.Fields[0].Field)
	assert.Equal(t, "offset", env.Error.Fields[1].Field)
}

func TestGetClaim_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   failure.Kind
	}{
		{"not found", failure.NotFound("claim_id", "claim %s not found", "x"), http.StatusNotFound, failure.KindValidation},
		{"not owner", failure.Denied(failure.ReasonNotOwner, "not yours"), http.StatusForbidden, failure.KindAuthorization},
		{"store down", errStoreDown, http.StatusServiceUnavailable, failure.KindTransport},
		{"plain error", errors.New("boom"), http.StatusServiceUnavailable, failure.KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &mockEngine{getClaimFunc: func(ctx context.Context, sess session.Session, claimID string) (*workflow.ClaimView, error) {
				return nil, tt.err
			}}
			w, env := do(t, newTestServer(engine), http.MethodGet, "/api/claims/x", employeeToken, nil, "")

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantKind, env.Error.Kind)
			if tt.wantKind == failure.KindTransport {
				assert.Equal(t, "service unavailable", env.Error.Message)
				assert.NotContains(t, w.Body.String(), "disk I/O")
			}
		})
	}
}

func TestTransportFailuresAreLogged(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCause string
	}{
		{name: "wrapped transport", err: errStoreDown, wantCause: "disk I/O error"},
		{name: "plain error", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &recordingLogger{}
			engine := &mockEngine{getClaimFunc: func(ctx context.Context, sess session.Session, claimID string) (*workflow.ClaimView, error) {
				return nil, tt.err
			}}
			srv := NewServer(DefaultServerConfig(), Services{
				Engine: engine, Identity: &mockIdentity{}, Tokens: mockTokens{},
				Advice: &mockAdvice{}, Reports: &mockReports{},
			}, logger)

			w, env := do(t, srv, http.MethodGet, "/api/claims/x", employeeToken, nil, "")
			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, "service unavailable", env.Error.Message)

			logged := logger.Errors()
			require.Len(t, logged, 1)
			assert.Equal(t, failure.KindTransport, logged[0].fields["kind"])
			assert.Equal(t, "/api/claims/x", logged[0].fields["path"])
			assert.Equal(t, tt.err, logged[0].fields["error"])
			if tt.wantCause != "" {
				cause, ok := logged[0].fields["cause"].(error)
				require.True(t, ok)
				assert.Contains(t, cause.Error(), tt.wantCause)
			}
		})
	}
}

func TestNonTransportFailuresAreNotLogged(t *testing.T) {
	logger := &recordingLogger{}
	engine := &mockEngine{getClaimFunc: func(ctx context.Context, sess session.Session, claimID string) (*workflow.ClaimView, error) {
		return nil, failure.NotFound("claim_id", "claim %s not found", "x")
	}}
	srv := NewServer(DefaultServerConfig(), Services{
		Engine: engine, Identity: &mockIdentity{}, Tokens: mockTokens{},
		Advice: &mockAdvice{}, Reports: &mockReports{},
	}, logger)

	w, _ := do(t, srv, http.MethodGet, "/api/claims/x", employeeToken, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, logger.Errors())
}

func TestReview(t *testing.T) {
	var got workflow.ReviewInput
	engine := &mockEngine{reviewFunc: func(ctx context.Context, sess session.Session, in workflow.ReviewInput) (*workflow.ReviewOutcome, error) {
		got = in
		if in.ClaimID == "paid" {
			return nil, failure.Conflict(failure.ReasonWrongState, "claim is not pending")
		}
		return &workflow.ReviewOutcome{Review: &entity.Review{ID: "rev-1"}, Status: domainwf.StateApproved}, nil
	}}
	srv := newTestServer(engine)

	w, env := do(t, srv, http.MethodPost, "/api/reviews", hrToken,
		jsonBody(t, map[string]string{"claim_id": "clm-1", "decision": "approve", "description": "ok"}), "application/json")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, string(env.Data), `"status":"approved"`)
	assert.Equal(t, workflow.ReviewInput{ClaimID: "clm-1", Decision: "approve", Note: "ok"}, got)

	w, env = do(t, srv, http.MethodPost, "/api/reviews", hrToken,
		jsonBody(t, map[string]string{"claim_id": "paid", "decision": "approve"}), "application/json")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, failure.ReasonWrongState, env.Error.Reason)
}

func TestPay(t *testing.T) {
	var got workflow.PaymentInput
	engine := &mockEngine{payFunc: func(ctx context.Context, sess session.Session, in workflow.PaymentInput) (*workflow.PaymentOutcome, error) {
		got = in
		return &workflow.PaymentOutcome{Payment: &entity.Payment{ID: "pay-1"}, Status: domainwf.StatePaid}, nil
	}}
	srv := newTestServer(engine)

	w, _ := do(t, srv, http.MethodPost, "/api/payments", financeToken,
		jsonBody(t, map[string]string{"claim_id": "clm-1", "payment_method_id": "cash"}), "application/json")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "cash", got.PaymentMethodID)
	assert.Nil(t, got.Proof)

	body, ct := multipartBody(t,
		map[string]string{"claim_id": "clm-2", "payment_method_id": "bank_transfer", "bank": "BCA"},
		formFile{name: "proof.png", content: []byte("proof")},
	)
	w, _ = do(t, srv, http.MethodPost, "/api/payments", financeToken, body, ct)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "clm-2", got.ClaimID)
	assert.Equal(t, "BCA", got.Bank)
	require.NotNil(t, got.Proof)
	assert.Equal(t, "proof.png", got.Proof.FileName)
}

func TestAttachToClaim(t *testing.T) {
	var gotID string
	engine := &mockEngine{attachFunc: func(ctx context.Context, sess session.Session, claimID string, upload entity.Upload) (*entity.Attachment, error) {
		gotID = claimID
		return &entity.Attachment{ID: "att-1", FileName: upload.FileName}, nil
	}}
	srv := newTestServer(engine)

	body, ct := multipartBody(t, nil, formFile{name: "receipt.png", content: []byte("img")})
	w, _ := do(t, srv, http.MethodPost, "/api/claims/clm-1/attachments", employeeToken, body, ct)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "clm-1", gotID)

	body, ct = multipartBody(t, map[string]string{"other": "x"})
	w, env := do(t, srv, http.MethodPost, "/api/claims/clm-1/attachments", employeeToken, body, ct)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, fileField, env.Error.Fields[0].Field)
}

func TestDownloadAttachment(t *testing.T) {
	engine := &mockEngine{openAttachmentFunc: func(ctx context.Context, sess session.Session, attachmentID string) (*entity.Attachment, []byte, error) {
		return &entity.Attachment{ID: attachmentID, FileName: "receipt.pdf", MimeType: entity.MimePDF}, []byte("%PDF-1.4"), nil
	}}
	srv := newTestServer(engine)

	w, _ := do(t, srv, http.MethodGet, "/api/attachments/att-1", employeeToken, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entity.MimePDF, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=receipt.pdf`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4", w.Body.String())
}

func TestExportPayments(t *testing.T) {
	srv := newTestServer(&mockEngine{}, func(s *Services) {
		s.Reports = &mockReports{exportFunc: func(ctx context.Context, sess session.Session) ([]byte, error) {
			if sess.Role != entity.RoleFinance {
				return nil, failure.Denied(failure.ReasonWrongRole, "finance only")
			}
			return []byte("xlsx"), nil
		}}
	})

	w, _ := do(t, srv, http.MethodGet, "/api/payments/export", financeToken, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxMimeType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "payments-")
	assert.Equal(t, "xlsx", w.Body.String())

	w, _ = do(t, srv, http.MethodGet, "/api/payments/export", employeeToken, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdvise(t *testing.T) {
	srv := newTestServer(&mockEngine{}, func(s *Services) {
		s.Advice = &mockAdvice{adviseFunc: func(ctx context.Context, sess session.Session, claimID string) (*port.Advice, error) {
			if claimID == "off" {
				return nil, failure.Transport(service.ErrAdvisorDisabled, "advisor not configured")
			}
			return &port.Advice{Recommendation: entity.DecisionApprove, Confidence: 0.9}, nil
		}}
	})

	w, env := do(t, srv, http.MethodPost, "/api/claims/clm-1/advice", hrToken, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"recommendation":"approve"`)

	w, env = do(t, srv, http.MethodPost, "/api/claims/off/advice", hrToken, nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, failure.ReasonUnavailable, env.Error.Reason)
}

func TestListEndpointsReturnEmptyArrays(t *testing.T) {
	engine := &mockEngine{
		listReviewsFunc: func(ctx context.Context, sess session.Session, claimID string) ([]entity.Review, error) {
			return nil, nil
		},
		historyFunc: func(ctx context.Context, sess session.Session, claimID string) ([]*entity.ClaimTransition, error) {
			return nil, nil
		},
		listPaymentsFunc: func(ctx context.Context, sess session.Session) ([]*entity.PaymentRecord, error) {
			return nil, nil
		},
		claimTypesFunc: func(ctx context.Context) ([]*entity.ClaimType, error) {
			return nil, nil
		},
	}
	srv := newTestServer(engine)

	for _, path := range []string{"/api/claims/clm-1/reviews", "/api/claims/clm-1/history", "/api/payments", "/api/claim-types"} {
		w, env := do(t, srv, http.MethodGet, path, financeToken, nil, "")
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "[]", string(env.Data), path)
	}
}

func TestClaimTypes(t *testing.T) {
	engine := &mockEngine{claimTypesFunc: func(ctx context.Context) ([]*entity.ClaimType, error) {
		return []*entity.ClaimType{
			{ID: "ct-001", Name: "Medis"},
			{ID: "ct-003", Name: "Perjalanan Dinas"},
		}, nil
	}}
	srv := newTestServer(engine)

	w, env := do(t, srv, http.MethodGet, "/api/claim-types", employeeToken, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	var got []entity.ClaimType
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "ct-003", got[1].ID)
	assert.Equal(t, "Perjalanan Dinas", got[1].Name)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{failure.Validation(failure.FieldError{Field: "desc1", Message: "is required"}), http.StatusUnprocessableEntity},
		{failure.NotFound("claim_id", "missing"), http.StatusNotFound},
		{failure.Denied(failure.ReasonWrongRole, "no"), http.StatusForbidden},
		{failure.Denied(failure.ReasonUnauthenticated, "no"), http.StatusUnauthorized},
		{failure.Conflict(failure.ReasonAlreadyPaid, "paid"), http.StatusConflict},
		{failure.Transport(errors.New("x"), "down"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestAmountUnmarshal(t *testing.T) {
	var req ClaimRequest
	require.NoError(t, json.Unmarshal([]byte(`{"transaction_total":null}`), &req))
	assert.Equal(t, Amount(""), req.TransactionTotal)

	require.NoError(t, json.Unmarshal([]byte(`{"transaction_total":1e3}`), &req))
	assert.Equal(t, Amount("1e3"), req.TransactionTotal)

	assert.Error(t, json.Unmarshal([]byte(`{"transaction_total":[1]}`), &req))
}
