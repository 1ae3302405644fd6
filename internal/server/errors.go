package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/domain"
	authdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/authorization"
	creditdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/credit/domain"
	feedbackdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/feedback/domain"
	itcheckdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/itcheck/domain"
	licensedomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/license/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/sequence"
	ticketdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/ticket/domain"
	userdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/user/domain"
	vaultdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/vault/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db/pagination"
	"gorm.io/gorm"
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
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
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

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, authdomain.ErrInvalidToken):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "invalid token",
		}
	case errors.Is(err, authdomain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "invalid credentials",
		}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrMissingToken),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, ticketdomain.ErrUnauthenticated):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authorization.ErrInvalidRole):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, userdomain.ErrUsernameTaken),
		errors.Is(err, userdomain.ErrUserInUse):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, sequence.ErrSequenceConflict):
		return http.StatusInternalServerError, errorPayload{
			Type:    "sequence_conflict",
			Message: sequence.ErrSequenceConflict.Error(),
		}
	case errors.Is(err, ErrServiceUnavailable):
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

// classifyErrorForLog feeds the request logger the same type the client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, userdomain.ErrUsernameTaken):
		return "username already taken"
	case errors.Is(err, userdomain.ErrUserInUse):
		return "user is referenced by tickets"
	default:
		return "conflict"
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

var validationErrors = []error{
	ErrInvalidRequest,
	pagination.ErrInvalidPageToken,
	authdomain.ErrWeakPassword,

	itcheckdomain.ErrInvalidID,
	itcheckdomain.ErrInvalidDeviceName,
	itcheckdomain.ErrInvalidAssignedTo,
	itcheckdomain.ErrInvalidStatus,
	itcheckdomain.ErrInvalidLastCheckedAt,
	itcheckdomain.ErrInvalidCapacity,
	itcheckdomain.ErrInvalidSpeedTest,
	itcheckdomain.ErrInvalidInstalledApp,

	licensedomain.ErrInvalidID,
	licensedomain.ErrInvalidName,
	licensedomain.ErrInvalidLicenseKey,
	licensedomain.ErrInvalidSeats,
	licensedomain.ErrInvalidPurchaseDate,
	licensedomain.ErrInvalidExpiryDate,
	licensedomain.ErrInvalidCost,
	licensedomain.ErrInvalidAddon,
	licensedomain.ErrInvalidFilter,

	vaultdomain.ErrInvalidID,
	vaultdomain.ErrInvalidTitle,
	vaultdomain.ErrInvalidPassword,
	vaultdomain.ErrInvalidCustomField,

	ticketdomain.ErrInvalidID,
	ticketdomain.ErrInvalidTitle,
	ticketdomain.ErrInvalidPriority,
	ticketdomain.ErrInvalidStatus,
	ticketdomain.ErrInvalidAssignee,
	ticketdomain.ErrInvalidRequester,
	ticketdomain.ErrInvalidBody,
	ticketdomain.ErrInvalidFileName,
	ticketdomain.ErrAttachmentTooLarge,

	creditdomain.ErrInvalidID,
	creditdomain.ErrInvalidReference,
	creditdomain.ErrInvalidCredits,
	creditdomain.ErrInvalidPurchaseDate,
	creditdomain.ErrInvalidCost,
	creditdomain.ErrInvalidWorkDate,
	creditdomain.ErrInvalidConsultant,
	creditdomain.ErrInvalidDescription,
	creditdomain.ErrInvalidCreditsConsumed,
	creditdomain.ErrInvalidDateRange,
	creditdomain.ErrInvalidImport,

	feedbackdomain.ErrInvalidID,
	feedbackdomain.ErrInvalidTitle,
	feedbackdomain.ErrInvalidTicket,
	feedbackdomain.ErrInvalidExpiresAt,
	feedbackdomain.ErrInvalidRating,
	feedbackdomain.ErrInvalidComment,

	userdomain.ErrInvalidID,
	userdomain.ErrInvalidUsername,
	userdomain.ErrInvalidName,
	userdomain.ErrInvalidEmail,
	userdomain.ErrInvalidRole,
	userdomain.ErrInvalidPermission,
	userdomain.ErrSelfLockout,

	auditdomain.ErrInvalidAction,
	auditdomain.ErrInvalidTimeRange,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, itcheckdomain.ErrNotFound),
		errors.Is(err, licensedomain.ErrNotFound),
		errors.Is(err, vaultdomain.ErrNotFound),
		errors.Is(err, ticketdomain.ErrNotFound),
		errors.Is(err, creditdomain.ErrNotFound),
		errors.Is(err, feedbackdomain.ErrNotFound),
		errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_attachment_size":
		return "attachment exceeds the size limit"
	case "invalid_self_change":
		return "you cannot change your own role, status or account"
	default:
		return "invalid value"
	}
}
