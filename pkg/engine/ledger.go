package engine

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/solbotics/trade-engine/pkg/rpc"
)

// Entry is the realized outcome of one confirmed swap, derived from the
// transaction's pre/post balance metadata rather than the quote, so it
// reflects what actually executed.
type Entry struct {
	Signature solana.Signature
	Slot      uint64
	// SolDelta is the owner's SOL change in whole SOL; negative means spent.
	// The network fee is included.
	SolDelta decimal.Decimal
	// TokenDelta is the owner's token change in whole tokens.
	TokenDelta decimal.Decimal
	FeeLamports uint64
}

// Ledger reconstructs trade outcomes from confirmed transactions.
type Ledger struct {
	client *rpc.Client
	log    zerolog.Logger
}

// NewLedger builds a Ledger over the shared RPC client.
func NewLedger(client *rpc.Client, log zerolog.Logger) *Ledger {
	return &Ledger{
		client: client,
		log:    log.With().Str("component", "ledger").Logger(),
	}
}

// Record fetches the confirmed transaction and diffs the owner's balances.
func (l *Ledger) Record(ctx context.Context, sig solana.Signature, owner, mint solana.PublicKey) (*Entry, error) {
	res, err := l.client.GetTransaction(ctx, sig)
	if err != nil {
		return nil, fmt.Errorf("fetch transaction %s: %w", sig, err)
	}
	if res == nil || res.Meta == nil {
		return nil, fmt.Errorf("transaction %s has no metadata", sig)
	}
	meta := res.Meta

	entry := &Entry{
		Signature:   sig,
		Slot:        res.Slot,
		FeeLamports: meta.Fee,
	}

	// Fee payer is account index zero.
	if len(meta.PreBalances) > 0 && len(meta.PostBalances) > 0 {
		pre := decimal.NewFromUint64(meta.PreBalances[0])
		post := decimal.NewFromUint64(meta.PostBalances[0])
		entry.SolDelta = post.Sub(pre).Shift(-9)
	}

	entry.TokenDelta = tokenDelta(meta.PostTokenBalances, owner, mint).
		Sub(tokenDelta(meta.PreTokenBalances, owner, mint))

	l.log.Debug().
		Stringer("signature", sig).
		Str("sol_delta", entry.SolDelta.String()).
		Str("token_delta", entry.TokenDelta.String()).
		Msg("trade recorded")
	return entry, nil
}

func tokenDelta(balances []solanarpc.TokenBalance, owner, mint solana.PublicKey) decimal.Decimal {
	total := decimal.Zero
	for _, b := range balances {
		if b.Owner == nil || *b.Owner != owner || b.Mint != mint {
			continue
		}
		if b.UiTokenAmount == nil {
			continue
		}
		amt, err := decimal.NewFromString(b.UiTokenAmount.Amount)
		if err != nil {
			continue
		}
		total = total.Add(amt.Shift(-int32(b.UiTokenAmount.Decimals)))
	}
	return total
}
