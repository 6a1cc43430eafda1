package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrBadRequest       = errors.New("bad request")
	ErrAlreadyLinked    = errors.New("component is already installed on a bike")
	ErrNotLinked        = errors.New("component is not installed on this bike")
	ErrAlreadyRented    = errors.New("bike is currently rented out")
	ErrNotRented        = errors.New("bike is not rented to this user")
	ErrNotRenting       = errors.New("bike must be rented before making any requests")
	ErrNotAuthorized    = errors.New("caller is not the renter")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrDuplicate        = errors.New("duplicate entity")
)

// AuthError is returned by token verification. Status is the HTTP status
// the caller should answer with.
type AuthError struct {
	Code        string
	Description string
	Status      int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func NewAuthError(code, description string) *AuthError {
	return &AuthError{Code: code, Description: description, Status: 401}
}
