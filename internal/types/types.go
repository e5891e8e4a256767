// internal/types/types.go
package types

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Address identifies an account on the ledger. Every component (token ledger,
// pool registry, referral registry, dex pair) and every user is an Address.
type Address = solana.PublicKey

var (
	// ZeroAddress is the "none" address. It never holds a balance and is never
	// a valid recipient.
	ZeroAddress = solana.PublicKey{}

	// BurnAddress receives burned tokens. It is the well-known incinerator
	// account, so nobody holds its key.
	BurnAddress = solana.MustPublicKeyFromBase58("1nc1nerator11111111111111111111111111111111")
)

// Seeds used to derive component accounts from the deployer address.
const (
	SeedToken    = "token"
	SeedLPToken  = "lp-token"
	SeedFarm     = "farm"
	SeedReferral = "referral"
	SeedPair     = "pair"
	SeedLocker   = "locker"
)

// ParseAddress decodes a base58 address. The empty string maps to ZeroAddress.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return ZeroAddress, nil
	}
	addr, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return ZeroAddress, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return addr, nil
}

// DeriveAddress returns the deterministic account a component owns when it
// is deployed by base.
func DeriveAddress(base Address, seed string) (Address, error) {
	addr, err := solana.CreateWithSeed(base, seed, solana.SystemProgramID)
	if err != nil {
		return ZeroAddress, fmt.Errorf("derive %s address: %w", seed, err)
	}
	return addr, nil
}

// IsZero reports whether addr is the zero address.
func IsZero(addr Address) bool {
	return addr == ZeroAddress
}

// NewAccount returns a fresh random address. Used by tooling and tests.
func NewAccount() Address {
	return solana.NewWallet().PublicKey()
}
