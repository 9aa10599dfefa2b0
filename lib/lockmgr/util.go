package lockmgr

import (
	"crypto/rand"
	"encoding/hex"
)

const (
	idLength = 8 // bytes of randomness per handle id
)

// generateHandleID creates a random hex id for a handle.
// Failure to read randomness only degrades the id used in logs.
func generateHandleID() string {
	randomBytes := make([]byte, idLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(randomBytes)
}
