// Package uid generates unique identifiers for object keys.
package uid

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Uid returns a unique id backed by 128 bits from a cryptographically
// strong pseudo-random generator, formatted as a canonical UUID string.
//
// If the random source is unavailable, a fallback id derived from the
// wall clock and a pseudo-random suffix is returned instead. The fallback
// has materially weaker collision resistance and exists only to keep the
// process functional when crypto/rand fails.
func Uid() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fallbackUid()
	}
	return id.String()
}

func fallbackUid() string {
	return fmt.Sprintf("%x-%04x", time.Now().UnixNano(), rand.Intn(0x10000))
}
