package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDuplicateError_IsAndMessage(t *testing.T) {
	var err error = &DuplicateError{DigestAlgorithm: "sha256", DigestValue: "abc"}

	assert.True(t, errors.Is(err, ErrDuplicateDocument))
	assert.Equal(t, "duplicate document: sha256 abc", err.Error())

	wrapped := fmt.Errorf("finalize: %w", err)
	var dup *DuplicateError
	assert.True(t, errors.As(wrapped, &dup))
	assert.Equal(t, "abc", dup.DigestValue)
}
