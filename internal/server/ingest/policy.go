package ingest

import (
	"mime"
	"slices"
	"strings"
)

type DuplicatePolicy string

const (
	// DuplicateReject refuses a second live object with the same digest.
	DuplicateReject DuplicatePolicy = "reject"
	// DuplicateShare answers with the object that already owns the digest.
	DuplicateShare DuplicatePolicy = "share"
)

// NoLimit disables a limit.
const NoLimit int64 = -1

// DefaultFieldSize caps how much of a non-file multipart field is read.
const DefaultFieldSize int64 = 1 << 20

const defaultMediaType = "application/octet-stream"

// Limits bounds an upload. Negative values mean unlimited.
type Limits struct {
	FileSize  int64
	Files     int64
	Fields    int64
	Parts     int64
	FieldSize int64
}

func Unlimited() Limits {
	return Limits{FileSize: NoLimit, Files: NoLimit, Fields: NoLimit, Parts: NoLimit, FieldSize: DefaultFieldSize}
}

func exceeds(count, limit int64) bool {
	return limit >= 0 && count > limit
}

// Policy is the resolved, immutable upload policy of one endpoint.
type Policy struct {
	// Name identifies the endpoint in logs and metrics.
	Name            string
	Bucket          string
	MimeTypes       []string
	Limits          Limits
	DigestAlgorithm string
	DuplicatePolicy DuplicatePolicy
}

// Allows reports whether mediaType passes the allow-list. An empty list
// allows everything.
func (p Policy) Allows(mediaType string) bool {
	return len(p.MimeTypes) == 0 || slices.Contains(p.MimeTypes, mediaType)
}

// MediaType extracts the lower-cased media type from a Content-Type value,
// dropping parameters. An empty value yields application/octet-stream.
func MediaType(contentType string) (string, map[string]string) {
	if strings.TrimSpace(contentType) == "" {
		return defaultMediaType, nil
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		base, _, _ := strings.Cut(contentType, ";")
		return strings.ToLower(strings.TrimSpace(base)), nil
	}
	return mediaType, params
}
