package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"travelbackend/internal/domain"
	"travelbackend/internal/http/middleware"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	resp := ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	}
	reqID := middleware.GetRequestID(c)
	if reqID != "" {
		c.JSON(status, gin.H{
			"error":      resp.Error,
			"code":       resp.Code,
			"details":    resp.Details,
			"request_id": reqID,
			"message":    message,
		})
		return
	}
	c.JSON(status, resp)
}

// RespondDomainError maps domain errors to HTTP responses. The presenting
// layer relies on the codes to distinguish "trip is full" from "you don't
// have permission" from "something went wrong".
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsForbidden(err):
		respondError(c, http.StatusForbidden, "forbidden", err.Error(), nil)
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case domain.IsCapacityFull(err):
		respondError(c, http.StatusConflict, "capacity_full", err.Error(), nil)
	case domain.IsInvalidState(err):
		respondError(c, http.StatusConflict, "invalid_state", err.Error(), nil)
	case domain.IsSignature(err):
		respondError(c, http.StatusBadRequest, "signature_invalid", err.Error(), nil)
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "conflict", err.Error(), nil)
	case domain.IsNetwork(err):
		respondError(c, http.StatusBadGateway, "network_error", err.Error(), nil)
	default:
		respondError(c, http.StatusInternalServerError, "internal_error", "something went wrong", nil)
	}
}
