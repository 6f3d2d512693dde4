// Package swap assembles the swap transaction: compute budget, account
// lifecycle, wrapped-SOL handling, and the AMM instruction, in a fixed order.
package swap

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/rs/zerolog"

	"github.com/solbotics/trade-engine/pkg/jito"
	"github.com/solbotics/trade-engine/pkg/pool"
	"github.com/solbotics/trade-engine/pkg/quote"
	"github.com/solbotics/trade-engine/pkg/rpc"
	"github.com/solbotics/trade-engine/pkg/types"
)

// ComputeUnitLimit is the fixed CU budget requested for every swap.
const ComputeUnitLimit = 300_000

// Request is everything the builder needs besides a blockhash.
type Request struct {
	Pool     *pool.Handle
	Quote    *quote.Quote
	Side     types.Side
	Owner    solana.PublicKey
	Priority types.PriorityPreset
	// TipLamports, when non-zero, appends a validator tip transfer as the
	// final instruction so the bundle relay sees the tip in-transaction.
	TipLamports uint64
}

// BuiltSwap is an unsigned transaction plus the pricing context it was built
// from.
type BuiltSwap struct {
	Tx          *solana.Transaction
	Quote       *quote.Quote
	Owner       solana.PublicKey
	TipLamports uint64
}

// Builder turns a priced swap into an unsigned transaction.
type Builder struct {
	client *rpc.Client
	log    zerolog.Logger
}

// NewBuilder constructs a Builder over the shared RPC client.
func NewBuilder(client *rpc.Client, log zerolog.Logger) *Builder {
	return &Builder{
		client: client,
		log:    log.With().Str("component", "swap-builder").Logger(),
	}
}

// Build plans the instruction sequence, fetches a fresh blockhash, and
// assembles the unsigned transaction with the owner as fee payer.
func (b *Builder) Build(ctx context.Context, req Request) (*BuiltSwap, error) {
	instructions, err := Plan(req)
	if err != nil {
		return nil, err
	}

	blockhash, err := b.client.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		instructions,
		blockhash.Value.Blockhash,
		solana.TransactionPayer(req.Owner),
	)
	if err != nil {
		return nil, fmt.Errorf("assemble transaction: %w", err)
	}

	b.log.Debug().
		Stringer("owner", req.Owner).
		Str("side", string(req.Side)).
		Uint64("amount_in", req.Quote.AmountIn).
		Uint64("min_out", req.Quote.MinAmountOut).
		Int("instructions", len(instructions)).
		Msg("swap transaction built")

	return &BuiltSwap{
		Tx:          tx,
		Quote:       req.Quote,
		Owner:       req.Owner,
		TipLamports: req.TipLamports,
	}, nil
}

// Plan produces the ordered instruction sequence for a swap:
//
//	compute unit limit, compute unit price, token ATA create, WSOL ATA
//	create, (buy only) wrap SOL, AMM swap, close WSOL ATA,
//	(tipped only) validator tip transfer.
//
// It is pure: no RPC, no signing, deterministic for a given request.
func Plan(req Request) ([]solana.Instruction, error) {
	if req.Quote == nil {
		return nil, fmt.Errorf("%w: quote is required", types.ErrInvalidAmount)
	}
	if req.Side != types.SideBuy && req.Side != types.SideSell {
		return nil, fmt.Errorf("%w: %q", types.ErrUnsupportedSide, req.Side)
	}
	if req.Owner.IsZero() {
		return nil, types.NewValidationError("owner", "cannot be zero")
	}

	h := req.Pool
	tokenATA, _, err := solana.FindAssociatedTokenAddress(req.Owner, h.TokenMint())
	if err != nil {
		return nil, fmt.Errorf("derive token ata: %w", err)
	}
	wsolATA, _, err := solana.FindAssociatedTokenAddress(req.Owner, solana.WrappedSol)
	if err != nil {
		return nil, fmt.Errorf("derive wsol ata: %w", err)
	}

	limitIx, err := computebudget.NewSetComputeUnitLimitInstruction(ComputeUnitLimit).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("build cu limit: %w", err)
	}
	priceIx, err := computebudget.NewSetComputeUnitPriceInstruction(req.Priority.MicroLamportsPerCU()).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("build cu price: %w", err)
	}

	instructions := []solana.Instruction{
		limitIx,
		priceIx,
		createATAIdempotent(req.Owner, req.Owner, h.TokenMint(), tokenATA),
		createATAIdempotent(req.Owner, req.Owner, solana.WrappedSol, wsolATA),
	}

	source, dest := tokenATA, wsolATA
	if req.Side == types.SideBuy {
		source, dest = wsolATA, tokenATA
		instructions = append(instructions,
			system.NewTransferInstruction(req.Quote.AmountIn, req.Owner, wsolATA).Build(),
			token.NewSyncNativeInstruction(wsolATA).Build(),
		)
	}

	instructions = append(instructions,
		swapBaseIn(h, source, dest, req.Owner, req.Quote.AmountIn, req.Quote.MinAmountOut),
		token.NewCloseAccountInstruction(wsolATA, req.Owner, req.Owner, nil).Build(),
	)

	if req.TipLamports > 0 {
		instructions = append(instructions,
			system.NewTransferInstruction(req.TipLamports, req.Owner, jito.RandomTipAccount()).Build(),
		)
	}

	return instructions, nil
}
