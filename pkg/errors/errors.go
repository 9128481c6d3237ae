// Package errors provides standardized error types and error handling
// utilities for the LetterVault platform. It defines common error categories,
// error codes, and helper functions for creating, wrapping, and inspecting
// errors across all platform services.
//
// # Error Categories
//
// The package defines several error categories that map to common failure
// scenarios:
//
//   - Validation errors: Invalid input, missing required fields
//   - Authentication errors: Invalid credentials, expired or malformed tokens
//   - Authorization errors: Insufficient permissions, access denied
//   - NotFound errors: Resource does not exist (or is not visible to the caller)
//   - Conflict errors: Resource already exists, unique constraint violated
//   - RateLimit errors: Request quota exceeded inside the current window
//   - Internal errors: Unexpected system failures
//   - Unavailable errors: Service or dependency temporarily unavailable
//   - Timeout errors: Operation exceeded time limit
//
// # Error Codes
//
// Each error includes a machine-readable code (e.g., "AUTH_002") that can be
// used for error tracking, alerting, and client-side error handling. Error
// codes follow the pattern CATEGORY_XXX where CATEGORY is a short identifier
// and XXX is a numeric code.
//
// # Usage
//
// Create a new error with context:
//
//	err := errors.New(errors.CodeValidation, "email address is invalid")
//
// Wrap an existing error:
//
//	err := errors.Wrap(err, errors.CodeInternalDatabase, "failed to load account")
//
// Check error category:
//
//	if errors.IsNotFound(err) {
//	    // handle not found
//	}
//
// Extract error details for logging:
//
//	if e, ok := errors.AsError(err); ok {
//	    logger.Error("operation failed",
//	        "code", e.Code,
//	        "message", e.Message,
//	    )
//	}
package errors
