package api

import (
	"fmt"
	"net/http"
)

// AuthError is a rejection from the auth service: bad credentials, a taken
// username, a missing field. Message is the server's own text.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth rejected (%d): %s", e.Status, e.Message)
}

// NetworkError means a request could not complete: transport failure, a
// non-2xx answer outside the auth service, or an undecodable body.
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %d %s: %v", e.Op, e.Status, http.StatusText(e.Status), e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
