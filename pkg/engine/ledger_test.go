package engine

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func tokenBalance(owner, mint solana.PublicKey, amount string, decimals uint8) solanarpc.TokenBalance {
	o := owner
	return solanarpc.TokenBalance{
		Mint:  mint,
		Owner: &o,
		UiTokenAmount: &solanarpc.UiTokenAmount{
			Amount:   amount,
			Decimals: decimals,
		},
	}
}

func TestTokenDelta(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	other := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	otherMint := solana.NewWallet().PublicKey()

	balances := []solanarpc.TokenBalance{
		tokenBalance(owner, mint, "2500000", 6),
		tokenBalance(owner, mint, "500000", 6),
		tokenBalance(other, mint, "9000000", 6),
		tokenBalance(owner, otherMint, "1000000", 6),
	}

	// Only the owner's accounts for the requested mint count, summed in
	// whole tokens.
	got := tokenDelta(balances, owner, mint)
	assert.True(t, got.Equal(decimal.NewFromFloat(3)), "got %s", got)
}

func TestTokenDeltaSkipsMalformed(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	noOwner := tokenBalance(owner, mint, "1000000", 6)
	noOwner.Owner = nil
	noAmount := tokenBalance(owner, mint, "1000000", 6)
	noAmount.UiTokenAmount = nil
	badAmount := tokenBalance(owner, mint, "not-a-number", 6)

	got := tokenDelta([]solanarpc.TokenBalance{noOwner, noAmount, badAmount}, owner, mint)
	assert.True(t, got.IsZero(), "got %s", got)
}
