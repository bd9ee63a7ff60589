// Package storage holds content fingerprinting shared by resource loaders.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"strings"
)

// ChecksumPrefix is the prefix for SHA-256 checksums.
const ChecksumPrefix = "sha256:"

// Checksum is a hex-encoded SHA-256 hash with the "sha256:" prefix.
type Checksum string

var (
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrInvalidChecksum  = errors.New("invalid checksum format")
)

// ComputeChecksum computes SHA-256 over a byte slice.
func ComputeChecksum(data []byte) Checksum {
	sum := sha256.Sum256(data)
	return FormatChecksum(sum[:])
}

// ChecksumReader hashes everything read through it.
type ChecksumReader struct {
	r io.Reader
	h hash.Hash
}

// NewChecksumReader wraps r.
func NewChecksumReader(r io.Reader) *ChecksumReader {
	h := sha256.New()
	return &ChecksumReader{r: io.TeeReader(r, h), h: h}
}

func (c *ChecksumReader) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

// Sum returns the checksum of the bytes read so far.
func (c *ChecksumReader) Sum() Checksum {
	return FormatChecksum(c.h.Sum(nil))
}

// Verify checks data against an expected checksum.
func Verify(data []byte, expected Checksum) error {
	return Expect(ComputeChecksum(data), expected)
}

// Expect compares an already computed checksum with an expected one.
func Expect(actual, expected Checksum) error {
	if _, err := ParseChecksum(expected); err != nil {
		return err
	}
	if actual != expected {
		return fmt.Errorf("%w: expected %s got %s", ErrChecksumMismatch, expected, actual)
	}
	return nil
}

// FormatChecksum formats raw hash bytes into a Checksum.
func FormatChecksum(sum []byte) Checksum {
	return Checksum(ChecksumPrefix + hex.EncodeToString(sum))
}

// ParseChecksum strips the "sha256:" prefix and returns the raw hex string.
func ParseChecksum(c Checksum) (string, error) {
	s := string(c)
	if !strings.HasPrefix(s, ChecksumPrefix) {
		return "", fmt.Errorf("%w: missing prefix %q", ErrInvalidChecksum, ChecksumPrefix)
	}
	hexStr := s[len(ChecksumPrefix):]
	if len(hexStr) != 64 {
		return "", fmt.Errorf("%w: expected 64 hex chars, got %d", ErrInvalidChecksum, len(hexStr))
	}
	if _, err := hex.DecodeString(hexStr); err != nil {
		return "", fmt.Errorf("%w: invalid hex: %v", ErrInvalidChecksum, err)
	}
	return hexStr, nil
}
