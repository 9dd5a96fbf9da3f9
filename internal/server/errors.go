package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	analysisdomain "github.com/locafrota/fleetsla/internal/analysis/domain"
	assistantdomain "github.com/locafrota/fleetsla/internal/assistant/domain"
	auditdomain "github.com/locafrota/fleetsla/internal/audit/domain"
	authdomain "github.com/locafrota/fleetsla/internal/auth/domain"
	"github.com/locafrota/fleetsla/internal/authorization"
	clientdomain "github.com/locafrota/fleetsla/internal/clientbase/domain"
	deletereqdomain "github.com/locafrota/fleetsla/internal/deletereq/domain"
	identitydomain "github.com/locafrota/fleetsla/internal/identity/domain"
	"github.com/locafrota/fleetsla/internal/providers/storage"
	scenariodomain "github.com/locafrota/fleetsla/internal/scenario/domain"
	ticketdomain "github.com/locafrota/fleetsla/internal/ticket/domain"
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

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")

	// Gate errors for accounts that logged in but still owe a step.
	ErrTermsNotAccepted       = errors.New("terms_not_accepted")
	ErrPasswordChangeRequired = errors.New("password_change_required")
)

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

		var limited *assistantdomain.RateLimitedError
		if errors.As(lastErr.Err, &limited) {
			retry := int(limited.RetryAfter.Seconds())
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
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
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if policyErr := asPolicyError(err); policyErr != nil {
		fields := make([]ValidationError, 0, len(policyErr.Problems))
		for _, problem := range policyErr.Problems {
			fields = append(fields, ValidationError{
				Field:   "password",
				Code:    "weak_password",
				Message: problem,
			})
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  fields,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	var limited *assistantdomain.RateLimitedError
	if errors.As(err, &limited) {
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    forbiddenType(err),
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    err.Error(),
			Message: "conflict",
		}
	case errors.Is(err, ticketdomain.ErrAttachmentTooLarge):
		return http.StatusRequestEntityTooLarge, errorPayload{
			Type:    "attachment_too_large",
			Message: "attachment too large",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, assistantdomain.ErrDisabled),
		errors.Is(err, assistantdomain.ErrUpstream):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func asPolicyError(err error) *identitydomain.PolicyError {
	var policyErr *identitydomain.PolicyError
	if errors.As(err, &policyErr) && policyErr != nil {
		return policyErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, authdomain.ErrMissingFields),
		errors.Is(err, authdomain.ErrPasswordMismatch),
		errors.Is(err, authdomain.ErrSamePassword),
		errors.Is(err, authdomain.ErrInvalidToken),
		errors.Is(err, authdomain.ErrTokenExpired),
		errors.Is(err, identitydomain.ErrInvalidID),
		errors.Is(err, identitydomain.ErrMissingFields),
		errors.Is(err, identitydomain.ErrPasswordMismatch),
		errors.Is(err, identitydomain.ErrWeakPassword),
		errors.Is(err, identitydomain.ErrInvalidRole),
		errors.Is(err, identitydomain.ErrInvalidStatus),
		errors.Is(err, analysisdomain.ErrInvalidID),
		errors.Is(err, analysisdomain.ErrMissingFields),
		errors.Is(err, analysisdomain.ErrInvalidKind),
		errors.Is(err, analysisdomain.ErrInvalidTimeRange),
		errors.Is(err, analysisdomain.ErrTooFewScenarios),
		errors.Is(err, scenariodomain.ErrMissingFields),
		errors.Is(err, scenariodomain.ErrInvalidPart),
		errors.Is(err, clientdomain.ErrInvalidPlate),
		errors.Is(err, clientdomain.ErrEmptyWorkbook),
		errors.Is(err, clientdomain.ErrMissingColumns),
		errors.Is(err, ticketdomain.ErrMissingFields),
		errors.Is(err, ticketdomain.ErrInvalidStatus),
		errors.Is(err, deletereqdomain.ErrMissingFields),
		errors.Is(err, deletereqdomain.ErrNotesRequired),
		errors.Is(err, deletereqdomain.ErrInvalidStatus),
		errors.Is(err, auditdomain.ErrInvalidAction),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, assistantdomain.ErrMissingFields),
		errors.Is(err, assistantdomain.ErrInvalidRole):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, ErrTermsNotAccepted),
		errors.Is(err, ErrPasswordChangeRequired),
		errors.Is(err, authdomain.ErrAccountPending),
		errors.Is(err, authdomain.ErrAccountRejected),
		errors.Is(err, authdomain.ErrAccountNoPassword),
		errors.Is(err, identitydomain.ErrProtectedUser),
		errors.Is(err, deletereqdomain.ErrNotOwner):
		return true
	default:
		return false
	}
}

// forbiddenType keeps the specific code for denials the UI branches on:
// pending accounts, the consent gate and the forced password change.
func forbiddenType(err error) string {
	switch {
	case errors.Is(err, ErrForbidden), errors.Is(err, authorization.ErrForbidden):
		return "forbidden"
	default:
		return err.Error()
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, identitydomain.ErrUsernameTaken),
		errors.Is(err, identitydomain.ErrEmailTaken),
		errors.Is(err, ticketdomain.ErrTicketClosed),
		errors.Is(err, deletereqdomain.ErrDuplicate),
		errors.Is(err, deletereqdomain.ErrAlreadyReviewed):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, identitydomain.ErrNotFound),
		errors.Is(err, analysisdomain.ErrNotFound),
		errors.Is(err, clientdomain.ErrNotFound),
		errors.Is(err, ticketdomain.ErrNotFound),
		errors.Is(err, ticketdomain.ErrAttachmentNotFound),
		errors.Is(err, deletereqdomain.ErrNotFound),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "weak_password", "password_mismatch", "same_password":
		return "password"
	case "invalid_plate":
		return "plate"
	case "invalid_token", "token_expired":
		return "token"
	default:
		return ""
	}
}

// classifyErrorForLog feeds the request logger the same classification the
// response carries, without rendering a body.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}
