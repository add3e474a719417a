package utils

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewPassSecret returns the unguessable string embedded in a pass QR
// code: a random UUID plus 16 bytes of extra entropy so secrets cannot
// be enumerated even if the UUID source were predictable.
func NewPassSecret() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return uuid.NewString() + "." + hex.EncodeToString(buf), nil
}
