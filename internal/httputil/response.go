// Package httputil holds the gin helpers shared by every handler: error rendering and
// pagination parsing.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/credvault/internal/errors"
)

// ErrorResponse represents a structured error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// errorMapping ties a sentinel to its HTTP rendering. With exposeMessage the wrapped error
// text is returned to the client; otherwise message is a fixed string.
type errorMapping struct {
	target        error
	status        int
	code          string
	message       string
	exposeMessage bool
}

// First match wins.
var errorMappings = []errorMapping{
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found", "The requested resource was not found", false},
	{apperrors.ErrConflict, http.StatusConflict, "conflict", "A conflict occurred with existing data", false},
	{apperrors.ErrInvalidInput, http.StatusUnprocessableEntity, "invalid_input", "", true},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "Authentication is required", false},
	{apperrors.ErrForbidden, http.StatusForbidden, "forbidden", "You don't have permission to access this resource", false},
	{apperrors.ErrGone, http.StatusGone, "gone", "The requested resource is no longer available", false},
	{apperrors.ErrIntegrity, http.StatusInternalServerError, "integrity_error", "Stored data failed an integrity check", false},
}

func classify(err error) (int, ErrorResponse) {
	for _, m := range errorMappings {
		if !apperrors.Is(err, m.target) {
			continue
		}
		resp := ErrorResponse{Error: m.code, Message: m.message}
		if m.exposeMessage {
			resp.Message = err.Error()
		}
		return m.status, resp
	}
	return http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	}
}

// HandleErrorGin renders err using errorMappings. Unknown errors become an opaque 500.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	HandleErrorWithCodeGin(c, err, "", logger)
}

// HandleErrorWithCodeGin is HandleErrorGin with a caller-supplied machine-readable code,
// such as a domain error kind, placed in the response's code field.
func HandleErrorWithCodeGin(c *gin.Context, err error, code string, logger *slog.Logger) {
	if err == nil {
		return
	}

	statusCode, errorResponse := classify(err)
	errorResponse.Code = code

	if logger != nil {
		level := slog.LevelWarn
		if statusCode >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request failed",
			slog.Int("status_code", statusCode),
			slog.String("error_code", errorResponse.Error),
			slog.Any("error", err),
		)
	}

	c.JSON(statusCode, errorResponse)
}

// HandleBadRequestGin writes 400 for a body or parameter that could not be parsed.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	rejectGin(c, http.StatusBadRequest, "bad_request", err, logger)
}

// HandleValidationErrorGin writes 422 for a request that parsed but failed validation.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	rejectGin(c, http.StatusUnprocessableEntity, "validation_error", err, logger)
}

func rejectGin(c *gin.Context, status int, code string, err error, logger *slog.Logger) {
	if logger != nil {
		logger.WarnContext(c.Request.Context(), "request rejected",
			slog.Int("status_code", status),
			slog.String("error_code", code),
			slog.Any("error", err),
		)
	}
	c.JSON(status, ErrorResponse{Error: code, Message: err.Error()})
}
