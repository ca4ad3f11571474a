package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/yukikurage/intake-workflow-api/internal/services"
)

// Error codes
const (
	// Authentication errors
	ErrCodeUnauthorized = "UNAUTHORIZED"

	// Authorization errors
	ErrCodeForbidden = "FORBIDDEN"

	// Validation errors
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeInvalidAssignee = "INVALID_ASSIGNEE"
	ErrCodeInvalidStatus   = "INVALID_STATUS"

	// Resource errors
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeNotAssigned = "NOT_ASSIGNED"
	ErrCodeConflict    = "CONFLICT"

	// Business logic errors
	ErrCodeAlreadyClaimed = "ALREADY_CLAIMED"

	// Service errors
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// APIError represents a standardized API error response
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new APIError
func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// NewAPIErrorWithDetails creates a new APIError with details
func NewAPIErrorWithDetails(code, message string, details interface{}) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// RespondWithError sends an error response
func RespondWithError(c *gin.Context, statusCode int, err *APIError) {
	c.JSON(statusCode, err)
}

type kindMapping struct {
	status int
	code   string
}

var serviceKinds = map[services.Kind]kindMapping{
	services.KindInvalidInput:     {http.StatusBadRequest, ErrCodeInvalidInput},
	services.KindInvalidAssignee:  {http.StatusBadRequest, ErrCodeInvalidAssignee},
	services.KindInvalidStatus:    {http.StatusBadRequest, ErrCodeInvalidStatus},
	services.KindForbidden:        {http.StatusForbidden, ErrCodeForbidden},
	services.KindNotFound:         {http.StatusNotFound, ErrCodeNotFound},
	services.KindNotAssigned:      {http.StatusNotFound, ErrCodeNotAssigned},
	services.KindAlreadyClaimed:   {http.StatusConflict, ErrCodeAlreadyClaimed},
	services.KindConflict:         {http.StatusConflict, ErrCodeConflict},
	services.KindStoreUnavailable: {http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
}

// RespondWithServiceError maps an engine error onto a status code
func RespondWithServiceError(c *gin.Context, err error) {
	m, ok := serviceKinds[services.KindOf(err)]
	if !ok {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("unhandled service error")
		InternalError(c, "")
		return
	}
	if m.status == http.StatusServiceUnavailable {
		log.Warn().Err(err).Str("path", c.FullPath()).Msg("store unavailable")
		RespondWithError(c, m.status, NewAPIError(m.code, "Service temporarily unavailable"))
		return
	}
	RespondWithError(c, m.status, NewAPIError(m.code, err.Error()))
}

// Helper functions for common error responses

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	RespondWithError(c, http.StatusUnauthorized, NewAPIError(ErrCodeUnauthorized, message))
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Access denied"
	}
	RespondWithError(c, http.StatusForbidden, NewAPIError(ErrCodeForbidden, message))
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, NewAPIError(ErrCodeNotFound, message))
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "Invalid request"
	}
	RespondWithError(c, http.StatusBadRequest, NewAPIError(ErrCodeInvalidInput, message))
}

// BadRequestWithDetails sends a 400 response with details
func BadRequestWithDetails(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, NewAPIErrorWithDetails(ErrCodeInvalidInput, message, details))
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	RespondWithError(c, http.StatusInternalServerError, NewAPIError(ErrCodeInternalError, message))
}
