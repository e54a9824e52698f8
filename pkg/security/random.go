package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
)

var tempPasswordCharset = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789")

// GenerateTempPassword produces a random string suitable for temporary
// credentials handed to invited users.
func GenerateTempPassword(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	limit := big.NewInt(int64(len(tempPasswordCharset)))
	result := make([]byte, length)
	for i := range result {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate temp password: %w", err)
		}
		result[i] = tempPasswordCharset[idx.Int64()]
	}
	return string(result), nil
}

// RandomToken returns n random bytes encoded as unpadded URL-safe base64. Used
// for OAuth state values and password reset links.
func RandomToken(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("token length must be positive")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// EqualTokens compares two secrets in constant time. Empty values never match.
func EqualTokens(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
