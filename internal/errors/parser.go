package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError maps a storage error to a client-safe code and message. Raw
// driver text never reaches the caller.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: getDefaultErrorMessage(context),
		}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: getNotFoundMessage(context),
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrorInfo{
			Code:    ResourceConflict,
			Message: "A concurrent update touched the same record, please retry",
		}
	}

	errStrLower := strings.ToLower(err.Error())

	// Untranslated PostgreSQL errors (23505, 23503, 23502)
	if strings.Contains(errStrLower, "duplicate key") || strings.Contains(errStrLower, "unique constraint") {
		return ErrorInfo{
			Code:    ResourceAlreadyExists,
			Message: "The record already exists",
		}
	}
	if strings.Contains(errStrLower, "foreign key constraint") {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: "A referenced record does not exist",
		}
	}
	if strings.Contains(errStrLower, "null value") && strings.Contains(errStrLower, "violates not-null constraint") {
		return ErrorInfo{
			Code:    ValidationRequired,
			Message: "A required field is missing",
		}
	}

	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "timeout") {
		return ErrorInfo{
			Code:    InternalDatabaseError,
			Message: "Storage is unavailable, please try again later",
		}
	}

	return ErrorInfo{
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "abandoned"):
		return "Abandoned cart not found"
	case strings.Contains(contextLower, "product"):
		return "Product not found"
	case strings.Contains(contextLower, "cart"):
		return "Cart item not found"
	}
	return "The requested record was not found"
}

func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "capture"):
		return "Database update/insert failed"
	case strings.Contains(contextLower, "cleanup"):
		return "Cleanup failed, please try again later"
	case strings.Contains(contextLower, "export"):
		return "Export failed, please try again later"
	}
	return "Internal server error, please try again later"
}

// ParseAndRespond parses err and writes it as an ErrorResponse.
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	errorInfo := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Error:   errorInfo.Code,
		Message: errorInfo.Message,
	})
}
