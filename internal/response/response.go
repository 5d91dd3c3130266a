package response

import (
	"net/http"

	"vocab-api/pkg/apperrors"
	"vocab-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Success returns a success response
func Success(data interface{}) Response {
	return Response{
		Success: true,
		Message: "success",
		Data:    data,
	}
}

// Error returns an error response carrying a machine-readable code
func Error(code apperrors.ErrorCode, message string) Response {
	return Response{
		Success: false,
		Message: message,
		Error:   string(code),
	}
}

// JSON sends a JSON response
func JSON(c *gin.Context, statusCode int, response Response) {
	c.JSON(statusCode, response)
}

// SuccessJSON sends a success JSON response
func SuccessJSON(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, Success(data))
}

// MessageJSON sends a success response with a message and no data
func MessageJSON(c *gin.Context, message string) {
	JSON(c, http.StatusOK, Response{Success: true, Message: message})
}

// ErrorJSON sends an error JSON response
func ErrorJSON(c *gin.Context, statusCode int, code apperrors.ErrorCode, message string) {
	JSON(c, statusCode, Error(code, message))
}

// AbortJSON sends an error response and stops the handler chain
func AbortJSON(c *gin.Context, statusCode int, code apperrors.ErrorCode, message string) {
	c.AbortWithStatusJSON(statusCode, Error(code, message))
}

// HandleError maps err onto a status and code. Internal details of 5xx
// errors are logged, never sent.
func HandleError(c *gin.Context, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Internal(err)
	}
	status := appErr.HTTPCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		logging.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, Error(appErr.Code, appErr.Message))
}
