package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`   // code from codes.go
	Message string `json:"message"` // human readable
}

func RespondWithError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}

func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	RespondWithError(c, http.StatusUnauthorized, AuthUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Access denied"
	}
	RespondWithError(c, http.StatusForbidden, AuthzForbidden, message)
}

func BadRequest(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusBadRequest, errorCode, message)
}

func NotFound(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusNotFound, errorCode, message)
}

func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error, please try again later"
	}
	RespondWithError(c, http.StatusInternalServerError, InternalServerError, message)
}

// ValidationError carries per-field validation messages.
type ValidationError struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func RespondWithValidationError(c *gin.Context, fields map[string]string) {
	c.JSON(http.StatusBadRequest, ValidationError{
		Error:   ValidationInvalidInput,
		Message: "Invalid input",
		Fields:  fields,
	})
}

// AjaxResponse is the {"success":bool,"data":{...}} envelope storefront
// scripts expect from the capture endpoint.
type AjaxResponse struct {
	Success bool     `json:"success"`
	Data    AjaxData `json:"data"`
}

type AjaxData struct {
	Message string `json:"message"`
	ID      uint   `json:"id,omitempty"`
}

// AjaxSuccess always answers 200.
func AjaxSuccess(c *gin.Context, message string, id uint) {
	c.JSON(http.StatusOK, AjaxResponse{
		Success: true,
		Data:    AjaxData{Message: message, ID: id},
	})
}

// AjaxFailure answers a non-fatal failure; the status is 200 unless the
// request was rejected outright.
func AjaxFailure(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, AjaxResponse{
		Success: false,
		Data:    AjaxData{Message: message},
	})
}
