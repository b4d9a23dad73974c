// Package addrs validates settlement-chain account addresses. Campaign
// parties, the oracle, and the registry authority are all identified by
// base58-encoded Solana public keys; the engine stores them as strings and
// only ever compares them, but rejects malformed ones at the boundary.
package addrs

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Validate returns an error when s is not a well-formed base58 public key.
func Validate(s string) error {
	if s == "" {
		return fmt.Errorf("address is empty")
	}
	if _, err := solana.PublicKeyFromBase58(s); err != nil {
		return fmt.Errorf("invalid address %q: %w", s, err)
	}
	return nil
}

// Normalize re-encodes the address through its parsed form so that two
// spellings of the same key always compare equal.
func Normalize(s string) (string, error) {
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", s, err)
	}
	return pk.String(), nil
}
