package client

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("document not found")
	ErrDuplicate    = errors.New("duplicate document")
)

// APIError is a non-2xx answer from the server. It unwraps to one of the
// sentinel errors when the status has one.
type APIError struct {
	Status          int
	Type            string `json:"type"`
	Message         string `json:"message"`
	DigestAlgorithm string `json:"digestAlgorithm"`
	DigestValue     string `json:"digestValue"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Type
	}
	if e.DigestValue != "" {
		msg += fmt.Sprintf(" (%s %s)", e.DigestAlgorithm, e.DigestValue)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, msg)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case 401, 403:
		return ErrUnauthorized
	case 404:
		return ErrNotFound
	case 409:
		return ErrDuplicate
	case 502, 503, 504:
		return ErrUnavailable
	}
	return nil
}
