// Package client talks to a docstore server over HTTP.
//
// # Overview
//
// The Client interface covers the document routes of one server: upload
// (single body or a one-file multipart form), download of the stored
// bytes, the proof view, soft delete and a health probe. HTTPClient is the
// implementation; it streams bodies in both directions and adds the bearer
// token, when configured, to every request.
//
// # Error Handling
//
// Non-2xx answers become *APIError, which carries the problem body sent by
// the server and unwraps to ErrUnauthorized, ErrNotFound, ErrDuplicate or
// ErrUnavailable so callers can match with errors.Is. Transport failures
// are wrapped with ErrUnavailable.
package client
