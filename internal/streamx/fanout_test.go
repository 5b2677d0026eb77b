package streamx

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(dst *bytes.Buffer) Consumer {
	return func(_ context.Context, r io.Reader) error {
		_, err := io.Copy(dst, r)
		return err
	}
}

func TestFanout_EveryConsumerSeesAllBytes(t *testing.T) {
	payload := make([]byte, 1<<20+17)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	var a, b bytes.Buffer
	err = Fanout(context.Background(), bytes.NewReader(payload), collect(&a), collect(&b))
	require.NoError(t, err)

	assert.Equal(t, payload, a.Bytes())
	assert.Equal(t, payload, b.Bytes())
}

func TestFanout_SlowConsumerOneByteAtATime(t *testing.T) {
	payload := strings.Repeat("abc", 5000)

	var fast, slow bytes.Buffer
	slowConsumer := func(_ context.Context, r io.Reader) error {
		_, err := io.Copy(&slow, iotest.OneByteReader(r))
		return err
	}

	err := Fanout(context.Background(), strings.NewReader(payload), collect(&fast), slowConsumer)
	require.NoError(t, err)
	assert.Equal(t, payload, fast.String())
	assert.Equal(t, payload, slow.String())
}

func TestFanout_ConsumerErrorStopsOthers(t *testing.T) {
	boom := errors.New("store failed")
	var reads atomic.Int64

	failing := func(_ context.Context, r io.Reader) error {
		buf := make([]byte, 10)
		_, _ = r.Read(buf)
		return boom
	}
	counting := func(_ context.Context, r io.Reader) error {
		n, err := io.Copy(io.Discard, r)
		reads.Add(n)
		return err
	}

	src := bytes.NewReader(make([]byte, 4<<20))
	err := Fanout(context.Background(), src, failing, counting)
	assert.ErrorIs(t, err, boom)
	assert.Less(t, reads.Load(), int64(4<<20))
}

func TestFanout_SourceErrorReachesConsumers(t *testing.T) {
	boom := errors.New("connection reset")
	src := io.MultiReader(strings.NewReader("partial"), iotest.ErrReader(boom))

	var seen atomic.Int32
	consumer := func(_ context.Context, r io.Reader) error {
		_, err := io.Copy(io.Discard, r)
		if errors.Is(err, boom) {
			seen.Add(1)
		}
		return err
	}

	err := Fanout(context.Background(), src, consumer, consumer)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(2), seen.Load())
}

func TestFanout_EmptySource(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, Fanout(context.Background(), strings.NewReader(""), collect(&a), collect(&b)))
	assert.Zero(t, a.Len())
	assert.Zero(t, b.Len())
}

func TestFanout_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Fanout(ctx, strings.NewReader("data"), collect(&bytes.Buffer{}))
	assert.ErrorIs(t, err, context.Canceled)
}
