// Package engine ties resolution, pricing, building, and submission into
// the two user-facing operations: execute a swap and find the largest safe
// size.
package engine

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/solbotics/trade-engine/pkg/amount"
	"github.com/solbotics/trade-engine/pkg/maxsize"
	"github.com/solbotics/trade-engine/pkg/pool"
	"github.com/solbotics/trade-engine/pkg/quote"
	"github.com/solbotics/trade-engine/pkg/submit"
	"github.com/solbotics/trade-engine/pkg/swap"
	"github.com/solbotics/trade-engine/pkg/types"
	"github.com/solbotics/trade-engine/pkg/wallet"
)

// feeBufferLamports is withheld from buy sizing so the wallet can still pay
// transaction fees and temporary rent for the wrapped-SOL account.
const feeBufferLamports = 10_000_000

// TxBuilder assembles unsigned swap transactions.
type TxBuilder interface {
	Build(ctx context.Context, req swap.Request) (*swap.BuiltSwap, error)
}

// Submitter lands a built swap.
type Submitter interface {
	Submit(ctx context.Context, built *swap.BuiltSwap, signer wallet.Signer) (*submit.Result, error)
}

// Balances reads wallet holdings.
type Balances interface {
	SOL(ctx context.Context, owner solana.PublicKey) (uint64, error)
	Token(ctx context.Context, owner, mint solana.PublicKey) (uint64, error)
}

// Engine executes swap intents end to end.
type Engine struct {
	dir       pool.Directory
	builder   TxBuilder
	submitter Submitter
	balances  Balances
	simulator submit.Simulator
	log       zerolog.Logger
}

// New wires an Engine from its collaborators.
func New(dir pool.Directory, builder TxBuilder, submitter Submitter, balances Balances, simulator submit.Simulator, log zerolog.Logger) *Engine {
	return &Engine{
		dir:       dir,
		builder:   builder,
		submitter: submitter,
		balances:  balances,
		simulator: simulator,
		log:       log.With().Str("component", "engine").Logger(),
	}
}

// Execution is the full outcome of one swap: the pricing it was built on
// and where it landed.
type Execution struct {
	Quote  *quote.Quote
	Result *submit.Result
}

// ExecuteSwap resolves the intent's quantity against the signer's balance,
// prices it, builds the transaction, and drives it through submission.
func (e *Engine) ExecuteSwap(ctx context.Context, signer wallet.Signer, intent types.SwapIntent) (*Execution, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}

	h, err := e.dir.FindBestPool(ctx, intent.Mint)
	if err != nil {
		return nil, err
	}
	reserves, err := e.dir.GetReserves(ctx, h)
	if err != nil {
		return nil, err
	}

	amountIn, err := e.resolveAmount(ctx, signer, intent, h, reserves)
	if err != nil {
		return nil, err
	}

	q, err := quote.Compute(h, reserves, intent.Side, amountIn, intent.SlippageBps)
	if err != nil {
		return nil, err
	}

	built, err := e.builder.Build(ctx, swap.Request{
		Pool:        h,
		Quote:       q,
		Side:        intent.Side,
		Owner:       signer.PublicKey(),
		Priority:    intent.Priority,
		TipLamports: intent.TipLamports,
	})
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Stringer("owner", signer.PublicKey()).
		Stringer("mint", intent.Mint).
		Str("side", string(intent.Side)).
		Uint64("amount_in", q.AmountIn).
		Uint64("min_out", q.MinAmountOut).
		Str("impact", q.PriceImpact.String()).
		Msg("executing swap")

	res, err := e.submitter.Submit(ctx, built, signer)
	if err != nil {
		return nil, err
	}
	return &Execution{Quote: q, Result: res}, nil
}

// FindMaxAmount returns the largest input that still passes simulation for
// the signer, capped by the wallet balance. The full balance is probed
// first.
func (e *Engine) FindMaxAmount(ctx context.Context, signer wallet.Signer, intent types.SwapIntent) (uint64, error) {
	if intent.Side != types.SideBuy && intent.Side != types.SideSell {
		return 0, fmt.Errorf("%w: %q", types.ErrUnsupportedSide, intent.Side)
	}
	h, err := e.dir.FindBestPool(ctx, intent.Mint)
	if err != nil {
		return 0, err
	}
	reserves, err := e.dir.GetReserves(ctx, h)
	if err != nil {
		return 0, err
	}
	upper, err := e.spendable(ctx, signer.PublicKey(), intent.Side, h)
	if err != nil {
		return 0, err
	}

	finder := maxsize.NewFinder(e.prober(signer, intent, h, reserves), e.log)
	return finder.FindMax(ctx, upper)
}

// prober builds, signs, and simulates a candidate-size swap.
func (e *Engine) prober(signer wallet.Signer, intent types.SwapIntent, h *pool.Handle, reserves pool.Reserves) maxsize.Prober {
	return maxsize.ProbeFunc(func(ctx context.Context, candidate uint64) error {
		q, err := quote.Compute(h, reserves, intent.Side, candidate, intent.SlippageBps)
		if err != nil {
			return err
		}
		built, err := e.builder.Build(ctx, swap.Request{
			Pool:     h,
			Quote:    q,
			Side:     intent.Side,
			Owner:    signer.PublicKey(),
			Priority: intent.Priority,
		})
		if err != nil {
			return err
		}
		message, err := built.Tx.Message.MarshalBinary()
		if err != nil {
			return err
		}
		sig, err := signer.SignMessage(ctx, message)
		if err != nil {
			return err
		}
		built.Tx.Signatures = []solana.Signature{sig}
		return e.simulator.Simulate(ctx, built.Tx)
	})
}

// spendable is the side-appropriate balance ceiling for sizing.
func (e *Engine) spendable(ctx context.Context, owner solana.PublicKey, side types.Side, h *pool.Handle) (uint64, error) {
	if side == types.SideBuy {
		bal, err := e.balances.SOL(ctx, owner)
		if err != nil {
			return 0, err
		}
		if bal <= feeBufferLamports {
			return 0, fmt.Errorf("%w: %d lamports cannot cover the fee buffer", types.ErrInsufficientBalance, bal)
		}
		return bal - feeBufferLamports, nil
	}
	bal, err := e.balances.Token(ctx, owner, h.TokenMint())
	if err != nil {
		return 0, err
	}
	if bal == 0 {
		return 0, fmt.Errorf("%w: no %s balance", types.ErrInsufficientBalance, h.TokenMint())
	}
	return bal, nil
}

// resolveAmount turns the intent's quantity spec into input base units.
func (e *Engine) resolveAmount(ctx context.Context, signer wallet.Signer, intent types.SwapIntent, h *pool.Handle, reserves pool.Reserves) (uint64, error) {
	spendable, err := e.spendable(ctx, signer.PublicKey(), intent.Side, h)
	if err != nil {
		return 0, err
	}

	if intent.Quantity == types.QuantityMax {
		finder := maxsize.NewFinder(e.prober(signer, intent, h, reserves), e.log)
		return finder.FindMax(ctx, spendable)
	}

	decimals := uint8(9)
	if intent.Side == types.SideSell {
		decimals = h.TokenDecimals()
	}
	resolved, err := amount.ResolveQuantity(amount.FromBaseUnits(spendable, decimals), intent.Quantity)
	if err != nil {
		return 0, err
	}
	units, err := amount.ToBaseUnits(resolved, decimals)
	if err != nil {
		return 0, err
	}
	if units == 0 {
		return 0, fmt.Errorf("%w: quantity %q resolves to zero", types.ErrInvalidAmount, intent.Quantity)
	}
	if units > spendable {
		return 0, fmt.Errorf("%w: need %d, have %d", types.ErrInsufficientBalance, units, spendable)
	}
	return units, nil
}
