// Package randhex produces random lowercase hex strings for fabricated
// tokens, hashes and addresses.
package randhex

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// String returns n random hex characters.
func String(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	buf := make([]byte, (n+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf)[:n], nil
}

// Bytes returns n random bytes.
func Bytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	return buf, nil
}
