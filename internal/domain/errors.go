package domain

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid argument")
)

type ErrorCode string

const (
	CodeInvalidHeader     ErrorCode = "invalid_header"
	CodeAuthHeaderMissing ErrorCode = "authorization_header_missing"
	CodeTokenExpired      ErrorCode = "token_expired"
	CodeInvalidClaims     ErrorCode = "invalid_claims"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeNotFound          ErrorCode = "not_found"
	CodeBadRequest        ErrorCode = "bad_request"
	CodeMethodNotAllowed  ErrorCode = "method_not_allowed"
	CodeUnprocessable     ErrorCode = "unprocessable"
	CodeTooManyRequests   ErrorCode = "too_many_requests"
	CodeInternal          ErrorCode = "internal"
)

// AuthError is a failure of the authorization pipeline. Status is the HTTP status the
// failure is reported with.
type AuthError struct {
	Code        ErrorCode
	Description string
	Status      int
	Err         error
}

func (e *AuthError) Error() string {
	if e == nil {
		return ""
	}
	if e.Description == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Description
}

func (e *AuthError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func NewAuthError(code ErrorCode, status int, description string) *AuthError {
	return &AuthError{Code: code, Status: status, Description: description}
}

func AsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

func ErrHeaderMissing() *AuthError {
	return NewAuthError(CodeAuthHeaderMissing, http.StatusUnauthorized, "Authorization header is expected.")
}

func ErrHeaderMalformed(description string) *AuthError {
	return NewAuthError(CodeInvalidHeader, http.StatusUnauthorized, description)
}

func ErrTokenUnparseable(cause error) *AuthError {
	return &AuthError{
		Code:        CodeInvalidHeader,
		Status:      http.StatusBadRequest,
		Description: "Unable to parse authentication token.",
		Err:         cause,
	}
}

func ErrKeyNotFound(cause error) *AuthError {
	return &AuthError{
		Code:        CodeInvalidHeader,
		Status:      http.StatusBadRequest,
		Description: "Unable to find the appropriate key.",
		Err:         cause,
	}
}

func ErrTokenExpired(cause error) *AuthError {
	return &AuthError{Code: CodeTokenExpired, Status: http.StatusUnauthorized, Description: "Token expired.", Err: cause}
}

func ErrIncorrectClaims(cause error) *AuthError {
	return &AuthError{
		Code:        CodeInvalidClaims,
		Status:      http.StatusUnauthorized,
		Description: "Incorrect claims. Please, check the audience and issuer.",
		Err:         cause,
	}
}

func ErrPermissionsMissing() *AuthError {
	return NewAuthError(CodeInvalidClaims, http.StatusBadRequest, "Permissions not included in Payload.")
}

func ErrPermissionDenied() *AuthError {
	return NewAuthError(CodeUnauthorized, http.StatusForbidden, "Permission not found.")
}
