package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/docstore/internal/common"
	"github.com/dmitrijs2005/docstore/internal/logging"
	"github.com/gin-gonic/gin"
)

// Problem is the JSON body of every error response.
type Problem struct {
	Type            string `json:"type"`
	Message         string `json:"message,omitempty"`
	DigestAlgorithm string `json:"digestAlgorithm,omitempty"`
	DigestValue     string `json:"digestValue,omitempty"`
}

type errorKind struct {
	err    error
	status int
	kind   string
}

// Order matters only for errors wrapping more than one sentinel.
var errorKinds = []errorKind{
	{common.ErrDuplicateDocument, http.StatusConflict, "DuplicateError"},
	{common.ErrUnsupportedMediaType, http.StatusNotAcceptable, "NotAllowedError"},
	{common.ErrUnsupportedContentType, http.StatusUnsupportedMediaType, "NotAllowedError"},
	{common.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, "PayloadTooLargeError"},
	{common.ErrTooManyParts, http.StatusBadRequest, "TooManyPartsError"},
	{common.ErrTooManyFiles, http.StatusBadRequest, "TooManyFilesError"},
	{common.ErrTooManyFields, http.StatusBadRequest, "TooManyFieldsError"},
	{common.ErrNoFilesPresent, http.StatusBadRequest, "NoFilesPresentError"},
	{common.ErrMultipleFilesNotSupported, http.StatusBadRequest, "MultipleFilesNotSupportedError"},
	{common.ErrFileTooLarge, http.StatusBadRequest, "FileTooLargeError"},
	{common.ErrMalformedRequest, http.StatusBadRequest, "SyntaxError"},
	{common.ErrorNotFound, http.StatusNotFound, "NotFoundError"},
	{common.ErrTokenExpired, http.StatusUnauthorized, "NotAuthenticatedError"},
	{common.ErrInvalidToken, http.StatusUnauthorized, "NotAuthenticatedError"},
	{common.ErrorUnauthorized, http.StatusUnauthorized, "NotAuthenticatedError"},
	{common.ErrForbidden, http.StatusForbidden, "NotAllowedError"},
}

// classify maps err to a status and a public problem. ok is false for
// errors the caller must not see.
func classify(err error) (int, Problem, bool) {
	for _, k := range errorKinds {
		if !errors.Is(err, k.err) {
			continue
		}
		p := Problem{Type: k.kind, Message: k.err.Error()}
		var dup *common.DuplicateError
		if errors.As(err, &dup) {
			p.DigestAlgorithm = dup.DigestAlgorithm
			p.DigestValue = dup.DigestValue
		}
		return k.status, p, true
	}
	return http.StatusInternalServerError, Problem{Type: "InternalError"}, false
}

// abortWithError writes the response for err. Unexpected errors are logged
// with the route and never echoed.
func abortWithError(c *gin.Context, log logging.Logger, err error, args ...any) {
	status, p, ok := classify(err)
	_ = c.Error(err)
	if !ok {
		args = append([]any{"route", c.FullPath(), "error", err}, args...)
		log.Error(c.Request.Context(), "request failed", args...)
	}
	c.AbortWithStatusJSON(status, p)
}
