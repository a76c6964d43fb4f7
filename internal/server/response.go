package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every API endpoint returns.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError carries a stable machine code plus a human message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Stable error codes the display layer switches on.
const (
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeInvalidAmount     = "INVALID_AMOUNT"
	ErrCodeBroadcastRejected = "BROADCAST_REJECTED"
	ErrCodeBroadcastTimeout  = "BROADCAST_TIMEOUT"
	ErrCodeCooldownActive    = "COOLDOWN_ACTIVE"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, Response{Success: false, Error: &APIError{Code: code, Message: message}})
}
