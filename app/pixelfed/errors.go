package pixelfed

import (
	"errors"
	"fmt"
)

// AuthError is a 401/403 from the instance: the presented token is invalid or
// revoked. Callers react by clearing local token state.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication rejected (HTTP %d)", e.StatusCode)
}

// IsAuthError checks whether an error is an authentication rejection.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// APIError is a structured rejection from the instance: the response carried
// a parsable `error` field. Its message is suitable for showing to the user.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// AsAPIError returns the APIError wrapped in err, if any.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
