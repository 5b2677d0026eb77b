package streamx

import (
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitedReader(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		limit     int64
		want      string
		truncated bool
		rest      string
	}{
		{name: "under limit", input: "abc", limit: 5, want: "abc"},
		{name: "exactly at limit", input: "abcde", limit: 5, want: "abcde"},
		{name: "over limit", input: "hello world", limit: 2, want: "he", truncated: true, rest: "lo world"},
		{name: "zero limit with data", input: "x", limit: 0, want: "", truncated: true},
		{name: "zero limit empty", input: "", limit: 0, want: ""},
		{name: "unlimited", input: "hello world", limit: -1, want: "hello world"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := strings.NewReader(tt.input)
			lr := NewLimitedReader(src, tt.limit)

			got, err := io.ReadAll(lr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
			assert.Equal(t, tt.truncated, lr.Truncated)
			assert.Equal(t, int64(len(tt.want)), lr.Count())

			rest, err := io.ReadAll(src)
			require.NoError(t, err)
			if tt.truncated {
				assert.Equal(t, tt.rest, string(rest))
			}
		})
	}
}

func TestLimitedReader_OneByteSource(t *testing.T) {
	lr := NewLimitedReader(iotest.OneByteReader(strings.NewReader("0123456789")), 4)

	got, err := io.ReadAll(lr)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(got))
	assert.True(t, lr.Truncated)
}

func TestDrain(t *testing.T) {
	n, err := Drain(strings.NewReader("leftover"))
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)
}
