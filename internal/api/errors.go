package api

import (
	"github.com/gin-gonic/gin"
)

const (
	CodeInvalidInputType  = "INVALID_INPUT_TYPE"
	CodeEmptyInput        = "EMPTY_INPUT"
	CodeInputTooShort     = "INPUT_TOO_SHORT"
	CodeInputTooLong      = "INPUT_TOO_LONG"
	CodeContextTooShort   = "CONTEXT_TOO_SHORT"
	CodeContextTooLong    = "CONTEXT_TOO_LONG"
	CodePayloadTooLarge   = "PAYLOAD_TOO_LARGE"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	CodeNotFound          = "NOT_FOUND"
	CodeInternal          = "INTERNAL_ERROR"
)

// errorResponse is the envelope every failed request gets.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func abortWithError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Success: false, Error: msg, Code: code})
}
