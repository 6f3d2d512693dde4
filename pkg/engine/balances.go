package engine

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/solbotics/trade-engine/pkg/rpc"
)

// RPCBalances reads wallet holdings through the shared RPC client.
type RPCBalances struct {
	Client *rpc.Client
}

// SOL returns the owner's lamport balance.
func (b RPCBalances) SOL(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	return b.Client.GetBalance(ctx, owner)
}

// Token returns the owner's balance in the mint's associated token account.
// A missing account reads as zero.
func (b RPCBalances) Token(ctx context.Context, owner, mint solana.PublicKey) (uint64, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, fmt.Errorf("derive ata: %w", err)
	}
	return b.Client.GetTokenBalance(ctx, ata)
}
