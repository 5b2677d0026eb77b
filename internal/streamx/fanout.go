// Package streamx splits one input stream between independent consumers
// and enforces size limits without buffering whole payloads.
package streamx

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"
)

// Consumer reads its own copy of the stream until EOF.
type Consumer func(ctx context.Context, r io.Reader) error

// errConsumerStopped is handed to the remaining readers when a consumer
// returns early, so nobody blocks on a pipe that will never be drained.
var errConsumerStopped = errors.New("streamx: consumer stopped reading")

// Fanout copies src to every consumer concurrently. Each consumer gets an
// io.Pipe, so a chunk is held only until the slowest consumer has taken
// it; memory stays bounded by the copy buffer. Fanout returns after src is
// exhausted and every consumer has returned, with the first error seen.
func Fanout(ctx context.Context, src io.Reader, consumers ...Consumer) error {
	g, gctx := errgroup.WithContext(ctx)

	writers := make([]io.Writer, len(consumers))
	pipes := make([]*io.PipeWriter, len(consumers))
	for i, consume := range consumers {
		pr, pw := io.Pipe()
		writers[i] = pw
		pipes[i] = pw
		g.Go(func() error {
			err := consume(gctx, pr)
			if err != nil {
				_ = pr.CloseWithError(err)
				return err
			}
			// Unblock the producer if the consumer stopped before EOF.
			_ = pr.CloseWithError(errConsumerStopped)
			return nil
		})
	}

	g.Go(func() error {
		_, err := io.Copy(io.MultiWriter(writers...), &ctxReader{ctx: gctx, r: src})
		for _, pw := range pipes {
			if err != nil {
				_ = pw.CloseWithError(err)
			} else {
				_ = pw.Close()
			}
		}
		if errors.Is(err, errConsumerStopped) {
			return nil
		}
		return err
	})

	return g.Wait()
}

// ctxReader stops a copy once ctx is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
