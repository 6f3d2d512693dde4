package swap

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/solbotics/trade-engine/pkg/pool"
)

// swapBaseInTag is the AMM v4 instruction discriminator for a fixed-input swap.
const swapBaseInTag = 9

// ataCreateIdempotentTag is the associated-token-account program's
// CreateIdempotent discriminator: a no-op when the account already exists.
const ataCreateIdempotentTag = 1

// swapBaseIn encodes the AMM fixed-input swap. Account order is dictated by
// the on-chain program.
func swapBaseIn(h *pool.Handle, userSource, userDest, owner solana.PublicKey, amountIn, minAmountOut uint64) solana.Instruction {
	data := make([]byte, 17)
	data[0] = swapBaseInTag
	binary.LittleEndian.PutUint64(data[1:9], amountIn)
	binary.LittleEndian.PutUint64(data[9:17], minAmountOut)

	accounts := solana.AccountMetaSlice{
		solana.Meta(solana.TokenProgramID),
		solana.Meta(h.Amm).WRITE(),
		solana.Meta(h.Authority),
		solana.Meta(h.OpenOrders).WRITE(),
		solana.Meta(h.TargetOrders).WRITE(),
		solana.Meta(h.BaseVault).WRITE(),
		solana.Meta(h.QuoteVault).WRITE(),
		solana.Meta(h.Market.Program),
		solana.Meta(h.Market.Market).WRITE(),
		solana.Meta(h.Market.Bids).WRITE(),
		solana.Meta(h.Market.Asks).WRITE(),
		solana.Meta(h.Market.EventQueue).WRITE(),
		solana.Meta(h.Market.BaseVault).WRITE(),
		solana.Meta(h.Market.QuoteVault).WRITE(),
		solana.Meta(h.Market.VaultSigner),
		solana.Meta(userSource).WRITE(),
		solana.Meta(userDest).WRITE(),
		solana.Meta(owner).SIGNER().WRITE(),
	}

	return solana.NewInstruction(pool.AmmV4Program, accounts, data)
}

// createATAIdempotent builds the ATA CreateIdempotent instruction so the
// pipeline never has to pre-check whether the account exists.
func createATAIdempotent(payer, owner, mint, ata solana.PublicKey) solana.Instruction {
	accounts := solana.AccountMetaSlice{
		solana.Meta(payer).SIGNER().WRITE(),
		solana.Meta(ata).WRITE(),
		solana.Meta(owner),
		solana.Meta(mint),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.TokenProgramID),
	}
	return solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		accounts,
		[]byte{ataCreateIdempotentTag},
	)
}
