package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/safar/stockmaster-sync/internal/database"
	"github.com/safar/stockmaster-sync/internal/logger"
	"github.com/safar/stockmaster-sync/internal/syncer"
	"github.com/safar/stockmaster-sync/internal/validation"
)

const (
	CodeValidationFailed = "validation_failed"
	CodeInvalidPayload   = "invalid_payload"
	CodeUnauthorized     = "unauthorized"
	CodeSyncFailed       = "sync_failed"
	CodeNotFound         = "not_found"
	CodeInternal         = "internal"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string                  `json:"error"`
	Code      string                  `json:"code"`
	Retryable bool                    `json:"retryable"`
	Fields    []validation.FieldError `json:"fields,omitempty"`
}

// Error is returned by handlers that already know how the failure should
// look to the client. Err is logged, never sent.
type Error struct {
	Status    int
	Code      string
	Message   string
	Retryable bool
	Fields    []validation.FieldError
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func invalidPayload(msg string, err error) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeInvalidPayload, Message: msg, Err: err}
}

func syncFailed(err error) *Error {
	if errors.Is(err, syncer.ErrInvalidTenant) {
		return &Error{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: "no tenant for caller", Err: err}
	}
	if database.IsDataError(err) {
		return rejected(err)
	}
	return &Error{
		Status:    http.StatusInternalServerError,
		Code:      CodeSyncFailed,
		Message:   "sync failed, nothing was applied; retry the whole sync",
		Retryable: true,
		Err:       err,
	}
}

// rejected reports values the database refused to store. Resending the same
// payload fails the same way, so the client must fix the record first.
func rejected(err error) *Error {
	e := &Error{
		Status:  http.StatusUnprocessableEntity,
		Code:    CodeValidationFailed,
		Message: "a record was rejected by the store; fix it before syncing again",
		Err:     err,
	}
	var recErr *syncer.RecordError
	var pqErr *pq.Error
	if errors.As(err, &recErr) && errors.As(err, &pqErr) {
		e.Fields = []validation.FieldError{{Field: recErr.Field(), Message: pqErr.Message}}
	}
	return e
}

func toResponse(err error) (int, ErrorResponse) {
	var apiErr *Error
	var verr *validation.Error
	var httpErr *echo.HTTPError

	switch {
	case errors.As(err, &apiErr):
		return apiErr.Status, ErrorResponse{Error: apiErr.Message, Code: apiErr.Code, Retryable: apiErr.Retryable, Fields: apiErr.Fields}
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Code: CodeValidationFailed, Fields: verr.Fields}
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "not found", Code: CodeNotFound}
	case errors.As(err, &httpErr):
		return httpErr.Code, ErrorResponse{Error: fmt.Sprint(httpErr.Message), Code: codeForStatus(httpErr.Code)}
	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error:     "internal error",
			Code:      CodeInternal,
			Retryable: database.IsRetryable(err) || errors.Is(err, context.DeadlineExceeded),
		}
	}
}

func codeForStatus(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return CodeUnauthorized
	case status == http.StatusNotFound:
		return CodeNotFound
	case status >= 500:
		return CodeInternal
	default:
		return CodeInvalidPayload
	}
}

// errorHandler renders every error as an ErrorResponse. Nothing is written
// when the client has already gone away.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if errors.Is(c.Request().Context().Err(), context.Canceled) {
		logger.FromContext(c).Info("client went away", zap.Error(err))
		return
	}

	status, body := toResponse(err)
	if status >= 500 {
		logger.FromContext(c).Error("request error", zap.Int("status", status), zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		logger.FromContext(c).Error("write error response", zap.Error(err))
	}
}
