// Package digest computes the content digests that address stored
// documents.
package digest

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"io"
	"sort"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Default is the algorithm used when an endpoint does not name one.
const Default = "sha256"

var ErrUnknownAlgorithm = errors.New("unknown digest algorithm")

var algorithms = map[string]func() hash.Hash{
	"sha256":   sha256.New,
	"sha384":   sha512.New384,
	"sha512":   sha512.New,
	"sha3-256": sha3.New256,
	"blake2b-256": func() hash.Hash {
		h, _ := blake2b.New256(nil)
		return h
	},
	"blake3": func() hash.Hash { return blake3.New() },
}

// Supported returns the registered algorithm names in sorted order.
func Supported() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns a fresh hash for algorithm.
func New(algorithm string) (hash.Hash, error) {
	ctor, ok := algorithms[algorithm]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
	return ctor(), nil
}

// Encode renders a raw digest as unpadded base64url.
func Encode(sum []byte) string {
	return base64.RawURLEncoding.EncodeToString(sum)
}

// Digest consumes r to EOF and returns the encoded digest of everything
// read. A read error fails the digest.
func Digest(r io.Reader, algorithm string) (string, error) {
	h, err := New(algorithm)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("digest %s: %w", algorithm, err)
	}
	return Encode(h.Sum(nil)), nil
}
