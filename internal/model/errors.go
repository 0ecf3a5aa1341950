package model

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")

	// ErrUnknownSymbol is returned by a price feed that has no quote for a symbol
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrPriceFeedUnavailable covers transport and upstream failures
	ErrPriceFeedUnavailable = errors.New("price feed unavailable")

	// ErrInvalidToken means the device push credential is no longer valid
	ErrInvalidToken = errors.New("invalid token")
)

// ValidationError describes a rejected field. It matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError names the missing entity. It matches ErrNotFound.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// PriceFetchError wraps a failed price lookup for one symbol
type PriceFetchError struct {
	Symbol string
	Err    error
}

func (e *PriceFetchError) Error() string {
	return fmt.Sprintf("fetch price for %s: %v", e.Symbol, e.Err)
}

func (e *PriceFetchError) Unwrap() error {
	return e.Err
}

// DeliveryErrorKind separates dead tokens from everything else
type DeliveryErrorKind string

const (
	DeliveryInvalidToken DeliveryErrorKind = "invalid_token"
	DeliveryTransient    DeliveryErrorKind = "transient"
)

// DeliveryError is a failed push to one device
type DeliveryError struct {
	DeviceID string
	Platform Platform
	Kind     DeliveryErrorKind
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s device %s (%s): %v", e.Platform, e.DeviceID, e.Kind, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrInvalidToken) match on kind even when the
// provider error does not wrap the sentinel.
func (e *DeliveryError) Is(target error) bool {
	return target == ErrInvalidToken && e.Kind == DeliveryInvalidToken
}
