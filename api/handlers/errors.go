// Package handlers provides HTTP API request handlers.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/shared-board/backend/internal/model"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// sendError sends an error response with the appropriate status code.
func sendError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// sendNamingError maps a naming layer failure to an HTTP error.
func sendNamingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrNameRequired), errors.Is(err, model.ErrInvalidName):
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, model.ErrBoardNotFound):
		sendError(c, http.StatusNotFound, "BOARD_NOT_FOUND", err.Error())
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("naming layer failed")
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Naming layer unavailable")
	}
}
