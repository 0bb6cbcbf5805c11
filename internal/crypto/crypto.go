package crypto

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
)

func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

func DecodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, errors.New("decoded hex is empty")
	}
	return b, nil
}

// ParseHash32 decodes a 64-char lowercase hex digest.
func ParseHash32(s string) ([32]byte, error) {
	var out [32]byte
	if len(s) != DigestSize*2 {
		return out, fmt.Errorf("hash must be %d hex chars, got %d", DigestSize*2, len(s))
	}
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'A' && c <= 'F' {
			return out, errors.New("hash must be lowercase hex")
		}
	}
	b, err := DecodeHex(s)
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, nil
}
