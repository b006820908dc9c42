package api

import (
	"crypto/rand"
	"math/big"
)

const (
	idLength = 24
	charset  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	requestIDPrefix = "chat_"
)

// NewRequestID generates a request correlation ID with the "chat_" prefix
// followed by 24 cryptographically random alphanumeric characters.
func NewRequestID() string {
	return requestIDPrefix + randomAlphanumeric(idLength)
}

func randomAlphanumeric(n int) string {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b)
}
