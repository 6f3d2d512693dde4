// Package types holds the shared trade domain vocabulary: sides, priority
// presets, swap intents, and the error taxonomy used across the engine.
package types

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Side is the trade direction relative to the token being traded.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide converts user input into a Side.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedSide, s)
	}
}

// PriorityPreset selects a compute-unit price tier for the swap transaction.
type PriorityPreset string

const (
	PrioritySlow PriorityPreset = "slow"
	PriorityAvg  PriorityPreset = "avg"
	PriorityFast PriorityPreset = "fast"
	PriorityMax  PriorityPreset = "max"
)

// MicroLamportsPerCU maps a preset to a fixed compute-unit price.
func (p PriorityPreset) MicroLamportsPerCU() uint64 {
	switch p {
	case PrioritySlow:
		return 10_000
	case PriorityAvg:
		return 100_000
	case PriorityFast:
		return 500_000
	case PriorityMax:
		return 2_000_000
	default:
		return 100_000
	}
}

// QuantityMax requests the largest tradable amount instead of an exact one.
// Resolution goes through the max-safe-amount finder.
const QuantityMax = "max"

// SwapIntent describes one requested swap against the best SOL-paired pool
// for Mint. Quantity is a decimal string, a percentage of the wallet balance
// ("50%"), or QuantityMax. It is denominated in SOL for buys and in token
// units for sells.
type SwapIntent struct {
	Mint        solana.PublicKey
	Side        Side
	Quantity    string
	SlippageBps uint64
	Priority    PriorityPreset
	TipLamports uint64
}

// Validate rejects obviously malformed intents before any RPC work.
func (i SwapIntent) Validate() error {
	if i.Mint.IsZero() {
		return NewValidationError("mint", "cannot be zero")
	}
	if i.Side != SideBuy && i.Side != SideSell {
		return fmt.Errorf("%w: %q", ErrUnsupportedSide, i.Side)
	}
	if i.Quantity == "" {
		return NewValidationError("quantity", "cannot be empty")
	}
	if i.SlippageBps > 10_000 {
		return NewValidationError("slippageBps", "must be <= 10000 (100%)")
	}
	return nil
}

// ValidatePublicKey validates a public key is not zero.
func ValidatePublicKey(name string, key solana.PublicKey) error {
	if key.IsZero() {
		return NewValidationError(name, "cannot be zero")
	}
	return nil
}
