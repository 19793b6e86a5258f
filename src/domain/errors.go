package domain

import "errors"

var (
	// ErrMemoNotFound is returned when the referenced id is absent from the record store
	ErrMemoNotFound = errors.New("memo not found")
	// ErrValidation is returned when a required field is missing or empty
	ErrValidation = errors.New("validation failed")
	// ErrStorage wraps network or database failures
	ErrStorage = errors.New("storage error")
	// ErrProviderUnavailable is returned when no AI provider is configured
	ErrProviderUnavailable = errors.New("ai provider is not configured")
	// ErrProviderEmptyResponse is returned when the AI call returned no usable text
	ErrProviderEmptyResponse = errors.New("ai provider returned no text")
)
