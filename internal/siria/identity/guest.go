// Package identity derives stable pseudo-identities for unauthenticated
// callers.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// guestKeyPrefix tags derived guest keys so they are recognisable in the
// database and can never collide with caller-supplied tokens of other shapes.
const guestKeyPrefix = "guest_"

// digestHexLen is the number of hex characters kept from the fingerprint
// digest.
const digestHexLen = 24

// ResolveGuestKey returns the guest identity for a request. A non-empty
// trimmed token pins the identity to the caller's choice; otherwise a stable
// key is derived from the client network address and agent string, so
// repeated requests from the same pair map to the same guest without any
// sign-in. Deterministic, no failure modes — empty inputs hash like any
// other value.
func ResolveGuestKey(rawToken, clientAddr, clientAgent string) string {
	if token := strings.TrimSpace(rawToken); token != "" {
		return token
	}

	fingerprint := clientAddr + "|" + clientAgent
	digest := sha256.Sum256([]byte(fingerprint))
	return guestKeyPrefix + hex.EncodeToString(digest[:])[:digestHexLen]
}
