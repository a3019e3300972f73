package datastore

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"
)

// DefaultChecksumAlgorithm is the digest historically stored in records.
const DefaultChecksumAlgorithm = "md5"

// ChecksumAlgorithms lists the supported digest names.
func ChecksumAlgorithms() []string {
	return []string{"md5", "sha256"}
}

// NewHash returns a fresh hash for the named algorithm. Names are
// case-insensitive.
func NewHash(algorithm string) (hash.Hash, error) {
	switch strings.ToLower(algorithm) {
	case "md5":
		return md5.New(), nil
	case "sha256":
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
}

// Digest hashes everything read from r and returns the lowercase hex digest.
func Digest(r io.Reader, algorithm string) (string, error) {
	h, err := NewHash(algorithm)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to read artifact: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
