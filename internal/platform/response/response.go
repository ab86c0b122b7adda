// Package response writes the JSON envelope every endpoint answers with.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/domain"
)

// Envelope is the top-level JSON body.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success writes a 200 with data.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 with data.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// NoContent writes a 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest writes a 400 validation error.
func BadRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, string(domain.KindValidation), message)
}

// Unauthorized writes a 401.
func Unauthorized(c *gin.Context, message string) {
	abort(c, http.StatusUnauthorized, string(domain.KindUnauthorized), message)
}

// Error maps err to a status code. Unknown errors become a 500 without
// leaking their text.
func Error(c *gin.Context, err error) {
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		_ = c.Error(err)
		abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}
	abort(c, StatusFor(appErr.Kind), appErr.ErrorCode(), appErr.Message)
}

// StatusFor returns the HTTP status for an error kind.
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindInvalidState:
		return http.StatusUnprocessableEntity
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Envelope{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message},
	})
}
