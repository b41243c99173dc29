// Package checksum computes SHA-256 digests of uploaded content.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// Reader hashes and counts everything read through it.
type Reader struct {
	r io.Reader
	h hash.Hash
	n int64
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, h: sha256.New()}
}

func (c *Reader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.h.Write(p[:n])
		c.n += int64(n)
	}
	return n, err
}

// Size returns the number of bytes read so far.
func (c *Reader) Size() int64 { return c.n }

// Sum returns the hex digest of the bytes read so far.
func (c *Reader) Sum() string { return hex.EncodeToString(c.h.Sum(nil)) }
