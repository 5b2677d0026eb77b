// Package common defines sentinel errors shared by the storage, ingestion
// and HTTP layers of docstore. Callers should use errors.Is to match them.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound   = errors.New("not found")
	ErrUniqueDigest = errors.New("digest already claimed")
	ErrObjectLive   = errors.New("object is live")

	// Service-level errors.
	ErrorUnauthorized = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")

	// Auth errors (invalid, malformed or expired token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Ingestion errors, reported to the uploader.
	ErrUnsupportedMediaType      = errors.New("unsupported media type")
	ErrUnsupportedContentType    = errors.New("unsupported content type")
	ErrMalformedRequest          = errors.New("malformed request body")
	ErrPayloadTooLarge           = errors.New("payload too large")
	ErrTooManyParts              = errors.New("too many parts")
	ErrTooManyFiles              = errors.New("too many files")
	ErrTooManyFields             = errors.New("too many fields")
	ErrNoFilesPresent            = errors.New("no files present")
	ErrMultipleFilesNotSupported = errors.New("multiple files not supported")
	ErrFileTooLarge              = errors.New("file size too large")
	ErrDuplicateDocument         = errors.New("duplicate document")

	// Configuration errors.
	ErrInvalidEndpoint = errors.New("invalid endpoint configuration")
)

// DuplicateError reports that a digest is already owned by another valid
// object in the same container.
type DuplicateError struct {
	DigestAlgorithm string
	DigestValue     string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrDuplicateDocument, e.DigestAlgorithm, e.DigestValue)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicateDocument }
