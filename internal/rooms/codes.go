package rooms

import (
	"crypto/rand"
	"fmt"
)

// Alphabet excludes ambiguous characters: 0, O, 1, I, L
const alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	DefaultCodeLength = 6
	MinCodeLength     = 4
	MaxCodeLength     = 12
)

// Bytes at or above this bound are redrawn so each letter is equally likely.
const unbiasedBound = 256 - 256%len(alphabet)

// GenerateCode returns a random room code of the given length.
func GenerateCode(length int) (string, error) {
	if length < MinCodeLength || length > MaxCodeLength {
		return "", fmt.Errorf("room code length %d out of range [%d, %d]", length, MinCodeLength, MaxCodeLength)
	}
	code := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for len(code) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= unbiasedBound {
				continue
			}
			code = append(code, alphabet[int(b)%len(alphabet)])
			if len(code) == length {
				break
			}
		}
	}
	return string(code), nil
}
