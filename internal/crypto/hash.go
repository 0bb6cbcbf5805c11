package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

const DigestSize = sha256.Size

func Sha256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

func Hex32(h [32]byte) string {
	return hex.EncodeToString(h[:])
}

// BitString renders b as a string over {'0','1'}, one group per byte.
// With padded=false a byte is written without leading zeros, so 0x01 becomes "1"
// and 0x00 becomes "0".
func BitString(b []byte, padded bool) string {
	var sb strings.Builder
	sb.Grow(len(b) * 8)
	for _, x := range b {
		s := strconv.FormatUint(uint64(x), 2)
		if padded {
			sb.WriteString(strings.Repeat("0", 8-len(s)))
		}
		sb.WriteString(s)
	}
	return sb.String()
}

// HasBitPrefix reports whether the bit rendering of b starts with prefix.
func HasBitPrefix(b []byte, prefix string, padded bool) bool {
	if prefix == "" {
		return true
	}
	// Only the leading bytes can matter; each contributes at least one bit.
	n := len(prefix)
	if n > len(b) {
		n = len(b)
	}
	return strings.HasPrefix(BitString(b[:n], padded), prefix)
}

// IsBitString reports whether s only uses the binary alphabet.
func IsBitString(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '0' && s[i] != '1' {
			return false
		}
	}
	return true
}
