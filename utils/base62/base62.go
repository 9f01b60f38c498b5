package base62

import (
	"crypto/sha256"
	"errors"

	"github.com/jxskiss/base62"
)

var ErrEmptyInput = errors.New("empty input")

// Digest returns the base62 encoded SHA-256 of data.
func Digest(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyInput
	}

	sum := sha256.Sum256(data)

	return base62.EncodeToString(sum[:]), nil
}

// Encode returns the base62 form of data.
func Encode(data []byte) string {
	return base62.EncodeToString(data)
}
