package streamx

import "io"

// LimitedReader passes through at most N bytes of R. When R holds more
// than N bytes it reports EOF at the limit and sets Truncated; the excess
// is left unread for the caller to drain.
type LimitedReader struct {
	R io.Reader
	// N is the byte limit; a negative N disables the limit.
	N int64

	Truncated bool
	read      int64
}

// NewLimitedReader wraps r with the given limit.
func NewLimitedReader(r io.Reader, n int64) *LimitedReader {
	return &LimitedReader{R: r, N: n}
}

// Count returns how many bytes have been passed through.
func (l *LimitedReader) Count() int64 { return l.read }

func (l *LimitedReader) Read(p []byte) (int, error) {
	if l.N < 0 {
		n, err := l.R.Read(p)
		l.read += int64(n)
		return n, err
	}
	if l.Truncated {
		return 0, io.EOF
	}

	remaining := l.N - l.read
	if remaining <= 0 {
		// Probe one byte to tell "exactly N" from "more than N".
		var probe [1]byte
		for {
			n, err := l.R.Read(probe[:])
			if n > 0 {
				l.Truncated = true
				return 0, io.EOF
			}
			if err != nil {
				return 0, err
			}
		}
	}

	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := l.R.Read(p)
	l.read += int64(n)
	return n, err
}

// Drain discards whatever is left in r.
func Drain(r io.Reader) (int64, error) {
	return io.Copy(io.Discard, r)
}
