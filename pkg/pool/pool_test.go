package pool

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEffectiveReserves(t *testing.T) {
	r := Reserves{
		BaseVault:       1_000,
		QuoteVault:      500,
		BaseOpenOrders:  200,
		QuoteOpenOrders: 100,
		BasePendingPnl:  50,
		QuotePendingPnl: 25,
	}
	assert.Equal(t, uint64(1_150), r.EffectiveBase())
	assert.Equal(t, uint64(575), r.EffectiveQuote())

	// Pending PnL larger than the holdings clamps to zero instead of
	// wrapping the unsigned subtraction.
	r.BasePendingPnl = 2_000
	assert.Equal(t, uint64(0), r.EffectiveBase())
}

func TestSpotPrice(t *testing.T) {
	h := &Handle{
		BaseMint:      solana.NewWallet().PublicKey(),
		QuoteMint:     solana.WrappedSol,
		BaseDecimals:  6,
		QuoteDecimals: 9,
	}
	// 1,000,000 tokens vs 500 SOL -> 0.0005 SOL per token.
	r := Reserves{BaseVault: 1_000_000_000_000, QuoteVault: 500_000_000_000}
	assert.True(t, SpotPrice(h, r).Equal(decimal.RequireFromString("0.0005")))

	// Flipped orientation prices the same.
	flipped := &Handle{
		BaseMint:      solana.WrappedSol,
		QuoteMint:     h.BaseMint,
		BaseDecimals:  9,
		QuoteDecimals: 6,
	}
	fr := Reserves{BaseVault: 500_000_000_000, QuoteVault: 1_000_000_000_000}
	assert.True(t, SpotPrice(flipped, fr).Equal(decimal.RequireFromString("0.0005")))

	assert.True(t, SpotPrice(h, Reserves{}).IsZero())
}

func TestHandleTokenSide(t *testing.T) {
	token := solana.NewWallet().PublicKey()

	h := &Handle{BaseMint: token, QuoteMint: solana.WrappedSol, BaseDecimals: 6, QuoteDecimals: 9}
	assert.False(t, h.BaseIsSOL())
	assert.Equal(t, token, h.TokenMint())
	assert.Equal(t, uint8(6), h.TokenDecimals())

	h = &Handle{BaseMint: solana.WrappedSol, QuoteMint: token, BaseDecimals: 9, QuoteDecimals: 6}
	assert.True(t, h.BaseIsSOL())
	assert.Equal(t, token, h.TokenMint())
	assert.Equal(t, uint8(6), h.TokenDecimals())
}
