package protocol

import (
	"crypto/rand"
	"errors"
	"log"
	"math/big"
	"strings"
)

var ErrEmptyRoomID = errors.New("room id is empty")

const (
	roomIDLength   = 8
	roomIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// NormalizeRoomID trims and upper-cases a user supplied room identifier.
func NormalizeRoomID(roomID string) (string, error) {
	id := strings.ToUpper(strings.TrimSpace(roomID))
	if id == "" {
		return "", ErrEmptyRoomID
	}
	return id, nil
}

// GenerateRoomID creates a random room identifier such as "K3ZQ8W1A".
func GenerateRoomID() string {
	var b strings.Builder
	b.Grow(roomIDLength)
	for i := 0; i < roomIDLength; i++ {
		b.WriteByte(roomIDAlphabet[randomIndex(len(roomIDAlphabet))])
	}
	return b.String()
}

// randomIndex returns a cryptographically secure random index for a slice of given length.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		log.Panic("Failed to generate random index:", err)
	}
	return int(n.Int64())
}
