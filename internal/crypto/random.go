package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// stateBytes is the entropy of a state token. 24 bytes keeps the token
// unguessable within the pending-authorization TTL window.
const stateBytes = 24

// GenerateState creates a cryptographically secure random state token,
// hex-encoded, binding an authorize request to its callback.
func GenerateState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
