package session

import (
	"github.com/MrEthical07/goSession/internal"
	"github.com/google/uuid"
)

// IDGenerator returns a fresh, unguessable session identifier.
type IDGenerator func() (string, error)

// UUIDGenerator returns random (version 4) UUIDs. It is the default.
func UUIDGenerator() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// RandomGenerator returns 128-bit identifiers encoded as unpadded base64url,
// which are shorter than UUIDs in cookies.
func RandomGenerator() (string, error) {
	return internal.NewRandomID()
}
