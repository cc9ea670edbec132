package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Error codes surfaced in the envelope. The set is closed: handlers map every
// failure onto one of these before it reaches a client.
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeInvalidImage       = "INVALID_IMAGE"
	CodeNotFound           = "NOT_FOUND"
	CodeEmailExists        = "EMAIL_ALREADY_EXISTS"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeMissingToken       = "MISSING_TOKEN"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeTokenRevoked       = "TOKEN_REVOKED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountDisabled    = "ACCOUNT_DISABLED"
	CodeForbidden          = "FORBIDDEN"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeContentPolicy      = "CONTENT_POLICY_VIOLATION"
	CodeUnsupportedSpecies = "UNSUPPORTED_SPECIES"
	CodeSpeciesFailed      = "SPECIES_DETECTION_FAILED"
	CodeBreedFailed        = "BREED_DETECTION_FAILED"
	CodeVisionUnavailable  = "VISION_SERVICE_UNAVAILABLE"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeDeletionFailed     = "DELETION_FAILED"
	CodePetNotFound        = "PET_NOT_FOUND"
	CodeHTTPError          = "HTTP_ERROR"
	CodeInternalError      = "INTERNAL_ERROR"
)

// APIError is the error half of the envelope.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Envelope is the body shape of every response a client sees.
// Exactly one of Data and Error is populated.
type Envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Error     *APIError   `json:"error"`
	Timestamp string      `json:"timestamp"`
}

// Now returns the envelope timestamp: RFC 3339 in UTC.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Success builds a success envelope without writing it.
func Success(data interface{}) Envelope {
	return Envelope{Success: true, Data: data, Timestamp: Now()}
}

// Failure builds an error envelope without writing it.
func Failure(code, message string, details map[string]interface{}) Envelope {
	return Envelope{
		Success:   false,
		Error:     &APIError{Code: code, Message: message, Details: details},
		Timestamp: Now(),
	}
}

// OK sends a 200 success envelope.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Success(data))
}

// Created sends a 201 success envelope.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Success(data))
}

// NoContent sends a bodyless 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Fail sends an error envelope with the given HTTP status and aborts.
func Fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Failure(code, message, nil))
}

// FailDetails is Fail with a details payload.
func FailDetails(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.AbortWithStatusJSON(status, Failure(code, message, details))
}

// Unauthorized sends a 401 with the given token-taxonomy code.
func Unauthorized(c *gin.Context, code, message string) {
	Fail(c, http.StatusUnauthorized, code, message)
}

// Forbidden sends a 403.
func Forbidden(c *gin.Context, message string) {
	Fail(c, http.StatusForbidden, CodeForbidden, message)
}

// NotFound sends a 404.
func NotFound(c *gin.Context, message string) {
	Fail(c, http.StatusNotFound, CodeNotFound, message)
}

// ValidationError sends a 422.
func ValidationError(c *gin.Context, message string) {
	Fail(c, http.StatusUnprocessableEntity, CodeValidationError, message)
}

// InternalError sends a 500 with a generic message; 5xx bodies never carry
// internal detail.
func InternalError(c *gin.Context) {
	Fail(c, http.StatusInternalServerError, CodeInternalError, "internal server error")
}
