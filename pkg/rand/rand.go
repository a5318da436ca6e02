package rand

import (
	"crypto/rand"
	"fmt"
)

const (
	alphanumeric      = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	lowerAlphanumeric = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// Secret returns n random characters drawn from [A-Za-z0-9].
func Secret(n int) (string, error) {
	return fromAlphabet(alphanumeric, n)
}

// ID returns n random characters drawn from [a-z0-9]. IDs are safe to use in hostnames and URLs.
func ID(n int) (string, error) {
	return fromAlphabet(lowerAlphanumeric, n)
}

// fromAlphabet masks random bytes down to the smallest power of two covering the alphabet and
// rejects anything past its end, so every character is equally likely.
func fromAlphabet(alphabet string, n int) (string, error) {
	if len(alphabet) == 0 || len(alphabet) > 256 {
		return "", fmt.Errorf("alphabet length must be between 1 and 256, got %d", len(alphabet))
	}
	if n <= 0 {
		return "", nil
	}

	var mask byte
	for bits := len(alphabet) - 1; bits != 0; bits >>= 1 {
		mask = mask<<1 | 1
	}

	result := make([]byte, 0, n)
	buf := make([]byte, n+n/3)
	for len(result) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if idx := int(b & mask); idx < len(alphabet) {
				result = append(result, alphabet[idx])
				if len(result) == n {
					break
				}
			}
		}
	}

	return string(result), nil
}
