package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/artisan-api/internal/api/shared"
	"github.com/phrazzld/artisan-api/internal/domain"
	"github.com/phrazzld/artisan-api/internal/export"
	"github.com/phrazzld/artisan-api/internal/generation"
	"github.com/phrazzld/artisan-api/internal/service"
	"github.com/phrazzld/artisan-api/internal/store"
)

// ErrInvalidID is returned when a path parameter is not a valid UUID.
var ErrInvalidID = errors.New("invalid ID")

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, service.ErrNothingToExport):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, generation.ErrInvalidTemplate),
		errors.Is(err, export.ErrUnsupportedFormat),
		errors.Is(err, ErrInvalidID):
		return http.StatusBadRequest

	// Configuration the user has to fix
	case errors.Is(err, generation.ErrMissingAPIKey):
		return http.StatusPreconditionFailed

	// Upstream model errors
	case errors.Is(err, generation.ErrTransientFailure):
		return http.StatusServiceUnavailable
	case errors.Is(err, generation.ErrInvalidConfig),
		errors.Is(err, generation.ErrInvalidResponse),
		errors.Is(err, generation.ErrContentBlocked),
		errors.Is(err, generation.ErrGenerationFailed):
		return http.StatusBadGateway

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err that reveals
// no internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, service.ErrNothingToExport):
		return "Task has no articles to export"
	case errors.Is(err, domain.ErrEmptyCompanyInfo):
		return "Company info is required"
	case errors.Is(err, domain.ErrEmptyProductInfo):
		return "Product info is required"
	case errors.Is(err, domain.ErrInvalidArticleCount):
		return "Article count is out of range"
	case errors.Is(err, domain.ErrInvalidTargetWordCount):
		return "Target word count must be positive"
	case errors.Is(err, domain.ErrValidation):
		return "Validation error"
	case errors.Is(err, generation.ErrInvalidTemplate):
		return "Prompt template must contain {company_info} and {product_info}"
	case errors.Is(err, export.ErrUnsupportedFormat):
		return "Unsupported export format"
	case errors.Is(err, ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, generation.ErrMissingAPIKey):
		return "API key is not configured"
	case errors.Is(err, generation.ErrTransientFailure):
		return "Language model is temporarily unavailable"
	case errors.Is(err, generation.ErrInvalidConfig):
		return "Language model rejected the configuration"
	case errors.Is(err, generation.ErrInvalidResponse),
		errors.Is(err, generation.ErrContentBlocked),
		errors.Is(err, generation.ErrGenerationFailed):
		return "Language model request failed"
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the status and message mapped from err and logs
// the redacted error. A non-empty fallbackMsg replaces the generic message
// for errors that have no specific mapping.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallbackMsg string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if fallbackMsg != "" && status == http.StatusInternalServerError {
		message = fallbackMsg
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// HandleValidationError writes a 400 with a sanitized description of the
// first failing field.
func HandleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
}

// SanitizeValidationError turns validator errors into a short message that
// names the field and the failed rule.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}

	// Fall back to parsing the message, for errors that went through fmt.
	errMsg := err.Error()
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 5 {
				return fmt.Sprintf("Invalid %s: %s", fieldParts[1], getValidationTagMessage(fieldParts[3]))
			}
			if len(fieldParts) >= 3 {
				return fmt.Sprintf("Invalid %s", fieldParts[1])
			}
		}
	}

	return "Validation error"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
