package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope for all admin API responses
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError carries error details in a response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SuccessResponse writes a successful envelope with the given payload
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success:   true,
		Data:      data,
		RequestID: c.GetString("request_id"),
		Timestamp: time.Now().UTC(),
	})
}

// ErrorResponse writes an error envelope with the given status code
func ErrorResponse(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		RequestID: c.GetString("request_id"),
		Timestamp: time.Now().UTC(),
	})
}

// NotFoundResponse writes a 404 error envelope
func NotFoundResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", message)
}
