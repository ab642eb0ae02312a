package filterir

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes filter errors. The set is closed; callers switch
// on it to decide whether to re-prompt, ask for confirmation or give up.
type ErrorCode string

const (
	ErrCodeUnknownColumn           ErrorCode = "UNKNOWN_COLUMN"
	ErrCodeUnknownCanonicalTerm    ErrorCode = "UNKNOWN_CANONICAL_TERM"
	ErrCodeAmbiguousTerm           ErrorCode = "AMBIGUOUS_TERM"
	ErrCodeInvalidOperator         ErrorCode = "INVALID_OPERATOR"
	ErrCodeTypeMismatch            ErrorCode = "TYPE_MISMATCH"
	ErrCodeSchemaChanged           ErrorCode = "SCHEMA_CHANGED"
	ErrCodeMissingTargetColumn     ErrorCode = "MISSING_TARGET_COLUMN"
	ErrCodeInvalidArity            ErrorCode = "INVALID_ARITY"
	ErrCodeMissingOperand          ErrorCode = "MISSING_OPERAND"
	ErrCodeEmptyInList             ErrorCode = "EMPTY_IN_LIST"
	ErrCodeTokenInvalidOrExpired   ErrorCode = "TOKEN_INVALID_OR_EXPIRED"
	ErrCodeTokenHashMismatch       ErrorCode = "TOKEN_HASH_MISMATCH"
	ErrCodeConfirmationRequired    ErrorCode = "CONFIRMATION_REQUIRED"
	ErrCodeStructuralLimitExceeded ErrorCode = "STRUCTURAL_LIMIT_EXCEEDED"
)

// Error is the typed failure returned by resolution, token validation and
// compilation. There is no partial success: when an Error is returned no
// spec or filter is.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description. Never contains secrets.
	Message string

	// Reason narrows token failures (see token.Reason). Empty otherwise.
	Reason string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s (reason=%s)", e.Code, e.Message, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errorf builds an *Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the ErrorCode from err.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) (ErrorCode, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code, true
	}
	return "", false
}

// IsCode returns true if err is an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// ReasonOf returns the token failure reason carried by err, if any.
func ReasonOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return ""
}
