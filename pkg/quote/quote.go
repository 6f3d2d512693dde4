// Package quote prices swaps against a constant-product pool using
// effective reserves and a fee taken from the input amount.
package quote

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/solbotics/trade-engine/pkg/pool"
	"github.com/solbotics/trade-engine/pkg/types"
)

// Quote is the result of pricing one swap. All amounts are in base units of
// their respective mints.
type Quote struct {
	AmountIn     uint64
	AmountOut    uint64
	MinAmountOut uint64
	// Fee is the portion of AmountIn consumed by the pool fee.
	Fee uint64
	// SpotPrice is the pre-trade SOL price of the token, decimals-adjusted.
	SpotPrice decimal.Decimal
	// ExecutionPrice is the realized SOL price of the token for this size.
	ExecutionPrice decimal.Decimal
	// PriceImpact is the relative deviation of ExecutionPrice from SpotPrice.
	PriceImpact decimal.Decimal
}

// Compute prices amountIn against the pool's effective reserves. Buys spend
// SOL for token, sells spend token for SOL. The fee comes off the input
// before the constant-product division; minAmountOut applies slippageBps on
// top of the computed output.
func Compute(h *pool.Handle, r pool.Reserves, side types.Side, amountIn uint64, slippageBps uint64) (*Quote, error) {
	if amountIn == 0 {
		return nil, fmt.Errorf("%w: amount in is zero", types.ErrInvalidAmount)
	}
	if slippageBps > 10_000 {
		return nil, fmt.Errorf("%w: slippage %d bps exceeds 100%%", types.ErrInvalidAmount, slippageBps)
	}

	reserveIn, reserveOut, err := orient(h, r, side)
	if err != nil {
		return nil, err
	}
	if reserveIn == 0 || reserveOut == 0 {
		return nil, fmt.Errorf("%w: pool %s has empty reserves", types.ErrPoolNotFound, h.Amm)
	}

	in := new(big.Int).SetUint64(amountIn)
	fee := new(big.Int).Mul(in, new(big.Int).SetUint64(h.SwapFeeBps))
	fee.Div(fee, big.NewInt(10_000))
	afterFee := new(big.Int).Sub(in, fee)

	rIn := new(big.Int).SetUint64(reserveIn)
	rOut := new(big.Int).SetUint64(reserveOut)

	// out = reserveOut * afterFee / (reserveIn + afterFee), floored.
	num := new(big.Int).Mul(rOut, afterFee)
	den := new(big.Int).Add(rIn, afterFee)
	out := num.Div(num, den)

	if out.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount %d too small to produce output", types.ErrInvalidAmount, amountIn)
	}
	amountOut := out.Uint64()

	minOut := new(big.Int).Mul(out, new(big.Int).SetUint64(10_000-slippageBps))
	minOut.Div(minOut, big.NewInt(10_000))

	spot := pool.SpotPrice(h, r)
	exec := executionPrice(h, side, amountIn, amountOut)

	var impact decimal.Decimal
	if !spot.IsZero() {
		impact = exec.Sub(spot).Div(spot).Abs()
	}

	return &Quote{
		AmountIn:       amountIn,
		AmountOut:      amountOut,
		MinAmountOut:   minOut.Uint64(),
		Fee:            fee.Uint64(),
		SpotPrice:      spot,
		ExecutionPrice: exec,
		PriceImpact:    impact,
	}, nil
}

// orient maps a trade side onto the pool's base/quote axes.
func orient(h *pool.Handle, r pool.Reserves, side types.Side) (reserveIn, reserveOut uint64, err error) {
	solIsBase := h.BaseIsSOL()
	switch side {
	case types.SideBuy:
		if solIsBase {
			return r.EffectiveBase(), r.EffectiveQuote(), nil
		}
		return r.EffectiveQuote(), r.EffectiveBase(), nil
	case types.SideSell:
		if solIsBase {
			return r.EffectiveQuote(), r.EffectiveBase(), nil
		}
		return r.EffectiveBase(), r.EffectiveQuote(), nil
	default:
		return 0, 0, fmt.Errorf("%w: %q", types.ErrUnsupportedSide, side)
	}
}

// executionPrice converts the in/out pair into a SOL-per-token price.
func executionPrice(h *pool.Handle, side types.Side, amountIn, amountOut uint64) decimal.Decimal {
	var solUnits, tokenUnits decimal.Decimal
	if side == types.SideBuy {
		solUnits = decimal.NewFromUint64(amountIn).Shift(-9)
		tokenUnits = decimal.NewFromUint64(amountOut).Shift(-int32(h.TokenDecimals()))
	} else {
		solUnits = decimal.NewFromUint64(amountOut).Shift(-9)
		tokenUnits = decimal.NewFromUint64(amountIn).Shift(-int32(h.TokenDecimals()))
	}
	if tokenUnits.IsZero() {
		return decimal.Zero
	}
	return solUnits.Div(tokenUnits)
}
