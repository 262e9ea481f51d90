package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/claims-workflow/internal/domain/failure"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody describes a rejected request
type ErrorBody struct {
	Message string               `json:"message"`
	Kind    failure.Kind         `json:"kind"`
	Reason  failure.Reason       `json:"reason,omitempty"`
	Fields  []failure.FieldError `json:"fields,omitempty"`
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

// statusFor maps an error kind and reason to an HTTP status
func statusFor(err error) int {
	fe, isFailure := failure.As(err)
	if !isFailure {
		return http.StatusServiceUnavailable
	}
	switch fe.Kind {
	case failure.KindValidation:
		if fe.Reason == failure.ReasonNotFound {
			return http.StatusNotFound
		}
		return http.StatusUnprocessableEntity
	case failure.KindAuthorization:
		if fe.Reason == failure.ReasonUnauthenticated {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case failure.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}

func errorBody(err error) *ErrorBody {
	fe, isFailure := failure.As(err)
	if !isFailure {
		return &ErrorBody{Message: "service unavailable", Kind: failure.KindTransport, Reason: failure.ReasonUnavailable}
	}
	body := &ErrorBody{Kind: fe.Kind, Reason: fe.Reason, Fields: fe.Fields, Message: fe.Message}
	if fe.Kind == failure.KindTransport {
		// Infrastructure detail stays in the log
		body.Message = "service unavailable"
	}
	if body.Message == "" {
		body.Message = string(fe.Kind)
	}
	return body
}

func writeError(c *gin.Context, logger Logger, err error) {
	logFailure(c, logger, err)
	c.JSON(statusFor(err), Response{Success: false, Error: errorBody(err)})
}

func abortWithError(c *gin.Context, logger Logger, err error) {
	logFailure(c, logger, err)
	c.AbortWithStatusJSON(statusFor(err), Response{Success: false, Error: errorBody(err)})
}

// logFailure records transport failures, whose detail is masked in the response
func logFailure(c *gin.Context, logger Logger, err error) {
	if logger == nil || failure.KindOf(err) != failure.KindTransport {
		return
	}
	fields := []interface{}{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"kind", failure.KindTransport,
		"reason", failure.ReasonOf(err),
		"error", err,
	}
	if fe, ok := failure.As(err); ok && fe.Err != nil {
		fields = append(fields, "cause", fe.Err)
	}
	logger.Error("Request failed", fields...)
}
