// Package solana validates the token and pair addresses the engine accepts
// into its candidate pool.
package solana

import (
	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidAddress reports whether s decodes as a 32-byte base58 Solana address.
// Both on-curve wallet keys and off-curve PDAs (pool accounts) pass.
func ValidAddress(s string) bool {
	raw, err := base58.Decode(s)
	return err == nil && len(raw) == 32
}

// OnCurve reports whether the address is a valid ed25519 point. Mint and
// wallet addresses are on-curve; program derived addresses are not.
func OnCurve(s string) bool {
	raw, err := base58.Decode(s)
	if err != nil || len(raw) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}
