package providers

import "errors"

var (
	// ErrUnknownProvider is returned when no configuration exists for the
	// requested provider id, or its kind has no registered adapter.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrConnectionFailed is returned when the upstream cannot be reached
	// or answers outside its documented protocol.
	ErrConnectionFailed = errors.New("provider connection failed")
	// ErrAuthFailed is returned when the upstream rejects the current
	// credentials. The gateway treats it as the signal for a token
	// refresh.
	ErrAuthFailed = errors.New("provider authentication failed")
	// ErrWrongFamily is returned when a calendar operation addresses an
	// email provider or the other way around.
	ErrWrongFamily = errors.New("provider does not belong to the requested family")
)
