package domain

import "errors"

// Common domain errors
var (
	// ErrNotFound is returned when a requested resource is not found
	ErrNotFound = errors.New("resource not found")
	// ErrValidation is returned when input validation fails
	ErrValidation = errors.New("validation error")
	// ErrUnauthorized is returned when a caller is not authorized to perform an action
	ErrUnauthorized = errors.New("unauthorized")
	// ErrCredentialInvalid is returned when a stock account credential is
	// rejected by the platform (revoked or expired cookie).
	ErrCredentialInvalid = errors.New("stock account credential invalid")
	// ErrUpstreamUnavailable is returned when an external API call fails
	// with a non-2xx response or a transport error.
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
	// ErrInsufficientStock is returned when no active stock account holds
	// enough balance to cover a purchase.
	ErrInsufficientStock = errors.New("insufficient stock balance")
	// ErrOrderNotPayable is returned when an order is in a state that does
	// not allow the requested transition.
	ErrOrderNotPayable = errors.New("order is not payable")
)
