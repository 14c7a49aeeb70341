package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// New32 returns exactly 32 lowercase hex characters, used as the public
// identifier for every aggregate.
func New32() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NewReference builds a gateway reference id: a short prefix plus a UUID,
// unique per money-movement attempt.
func NewReference(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
