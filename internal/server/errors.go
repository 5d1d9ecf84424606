package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/clinicbill/internal/audit/domain"
	invoicedomain "github.com/smallbiznis/clinicbill/internal/invoice/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if errors.Is(err, auditdomain.ErrInvalidPageToken) || errors.Is(err, auditdomain.ErrInvalidAction) {
		return http.StatusBadRequest, validationPayload(err.Error())
	}

	code := invoicedomain.Code(err)
	switch invoicedomain.Category(err) {
	case invoicedomain.CategoryValidation:
		return http.StatusBadRequest, validationPayload(code)
	case invoicedomain.CategoryState:
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_state",
			Message: humanize(code),
		}
	case invoicedomain.CategoryConflict:
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: humanize(code),
		}
	case invoicedomain.CategoryNotFound:
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case invoicedomain.CategoryCollision:
		return http.StatusInternalServerError, errorPayload{
			Type:    "sequence_collision",
			Message: "could not allocate an invoice number, retry later",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func validationPayload(code string) errorPayload {
	return errorPayload{
		Type:    "validation_error",
		Message: "validation error",
		Errors: []ValidationError{
			{
				Field:   validationErrorField(code),
				Code:    code,
				Message: humanize(code),
			},
		},
	}
}

// classifyErrorForLog feeds error_type and error_code into request logs.
func classifyErrorForLog(err error) (string, string) {
	if vErr := asValidationErrors(err); vErr != nil {
		if len(vErr.Errors) > 0 {
			return "validation_error", vErr.Errors[0].Code
		}
		return "validation_error", ""
	}
	_, payload := mapError(err)
	return payload.Type, invoicedomain.Code(err)
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func validationErrorField(code string) string {
	switch code {
	case "actor_required":
		return "userId"
	case "void_reason_required":
		return "reason"
	case "currency_mismatch":
		return "currency"
	case "invalid_invoice_id":
		return "id"
	case "invalid_page_token":
		return "page_token"
	}
	return strings.TrimPrefix(code, "invalid_")
}

func humanize(code string) string {
	return strings.ReplaceAll(code, "_", " ")
}
