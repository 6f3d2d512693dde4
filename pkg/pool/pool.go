// Package pool models the AMM liquidity pool handle consumed from the pool
// directory and the effective reserves used for pricing.
package pool

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Handle is an opaque reference to one AMM pool. One side is always wrapped
// SOL. Handles are immutable once fetched and re-fetched per call; the core
// never caches them.
type Handle struct {
	Amm          solana.PublicKey
	Authority    solana.PublicKey
	BaseMint     solana.PublicKey
	QuoteMint    solana.PublicKey
	BaseVault    solana.PublicKey
	QuoteVault   solana.PublicKey
	LpMint       solana.PublicKey
	OpenOrders   solana.PublicKey
	TargetOrders solana.PublicKey
	Market       MarketAccounts
	BaseDecimals  uint8
	QuoteDecimals uint8
	// SwapFeeBps is the pool's fixed trading fee, taken from the input
	// amount before the constant-product division.
	SwapFeeBps uint64
}

// MarketAccounts are the serum market accounts the swap instruction routes
// through.
type MarketAccounts struct {
	Program     solana.PublicKey
	Market      solana.PublicKey
	Bids        solana.PublicKey
	Asks        solana.PublicKey
	EventQueue  solana.PublicKey
	BaseVault   solana.PublicKey
	QuoteVault  solana.PublicKey
	VaultSigner solana.PublicKey
}

// BaseIsSOL reports whether the wrapped-native side is the base mint.
func (h *Handle) BaseIsSOL() bool {
	return h.BaseMint == solana.WrappedSol
}

// TokenMint returns the non-SOL side of the pool.
func (h *Handle) TokenMint() solana.PublicKey {
	if h.BaseIsSOL() {
		return h.QuoteMint
	}
	return h.BaseMint
}

// TokenDecimals returns the decimals of the non-SOL side.
func (h *Handle) TokenDecimals() uint8 {
	if h.BaseIsSOL() {
		return h.QuoteDecimals
	}
	return h.BaseDecimals
}

// Reserves are the pool balances backing a quote. Pricing uses effective
// reserves: vault balances plus tokens resting in the pool's open-orders
// account minus pool-level pending PnL not yet swept. Raw vault balances
// alone under-count reserves for pools with outstanding limit orders.
type Reserves struct {
	BaseVault       uint64
	QuoteVault      uint64
	BaseOpenOrders  uint64
	QuoteOpenOrders uint64
	BasePendingPnl  uint64
	QuotePendingPnl uint64
}

// EffectiveBase returns the base-side reserve used for pricing.
func (r Reserves) EffectiveBase() uint64 {
	total := r.BaseVault + r.BaseOpenOrders
	if r.BasePendingPnl > total {
		return 0
	}
	return total - r.BasePendingPnl
}

// EffectiveQuote returns the quote-side reserve used for pricing.
func (r Reserves) EffectiveQuote() uint64 {
	total := r.QuoteVault + r.QuoteOpenOrders
	if r.QuotePendingPnl > total {
		return 0
	}
	return total - r.QuotePendingPnl
}

// SpotPrice returns the SOL price of the token, decimals-adjusted.
// Zero reserves yield a zero price.
func SpotPrice(h *Handle, r Reserves) decimal.Decimal {
	base := decimal.NewFromUint64(r.EffectiveBase()).Shift(-int32(h.BaseDecimals))
	quote := decimal.NewFromUint64(r.EffectiveQuote()).Shift(-int32(h.QuoteDecimals))
	if h.BaseIsSOL() {
		if quote.IsZero() {
			return decimal.Zero
		}
		return base.Div(quote)
	}
	if base.IsZero() {
		return decimal.Zero
	}
	return quote.Div(base)
}

// Directory is the consumed pool-directory collaborator. FindBestPool returns
// the biggest-by-opposite-reserve SOL-paired pool for a mint, or
// types.ErrPoolNotFound. The background discovery process populating it is
// out of scope.
type Directory interface {
	FindBestPool(ctx context.Context, mint solana.PublicKey) (*Handle, error)
	GetReserves(ctx context.Context, h *Handle) (Reserves, error)
}
