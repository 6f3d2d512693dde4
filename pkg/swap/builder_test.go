package swap

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solbotics/trade-engine/pkg/pool"
	"github.com/solbotics/trade-engine/pkg/quote"
	"github.com/solbotics/trade-engine/pkg/types"
)

func testHandle() *pool.Handle {
	return &pool.Handle{
		Amm:          solana.NewWallet().PublicKey(),
		Authority:    pool.AmmAuthority,
		BaseMint:     solana.NewWallet().PublicKey(),
		QuoteMint:    solana.WrappedSol,
		BaseVault:    solana.NewWallet().PublicKey(),
		QuoteVault:   solana.NewWallet().PublicKey(),
		OpenOrders:   solana.NewWallet().PublicKey(),
		TargetOrders: solana.NewWallet().PublicKey(),
		Market: pool.MarketAccounts{
			Program:     solana.NewWallet().PublicKey(),
			Market:      solana.NewWallet().PublicKey(),
			Bids:        solana.NewWallet().PublicKey(),
			Asks:        solana.NewWallet().PublicKey(),
			EventQueue:  solana.NewWallet().PublicKey(),
			BaseVault:   solana.NewWallet().PublicKey(),
			QuoteVault:  solana.NewWallet().PublicKey(),
			VaultSigner: solana.NewWallet().PublicKey(),
		},
		BaseDecimals:  6,
		QuoteDecimals: 9,
		SwapFeeBps:    25,
	}
}

func testRequest(side types.Side) Request {
	return Request{
		Pool: testHandle(),
		Quote: &quote.Quote{
			AmountIn:     5_000_000_000,
			AmountOut:    9_900_990_099,
			MinAmountOut: 9_801_980_198,
		},
		Side:     side,
		Owner:    solana.NewWallet().PublicKey(),
		Priority: types.PriorityFast,
	}
}

func programIDs(t *testing.T, instructions []solana.Instruction) []solana.PublicKey {
	t.Helper()
	out := make([]solana.PublicKey, len(instructions))
	for i, ix := range instructions {
		out[i] = ix.ProgramID()
	}
	return out
}

func TestPlanBuyOrder(t *testing.T) {
	instructions, err := Plan(testRequest(types.SideBuy))
	require.NoError(t, err)

	// limit, price, token ata, wsol ata, wrap transfer, sync, swap, close.
	require.Len(t, instructions, 8)
	ids := programIDs(t, instructions)
	assert.Equal(t, solana.ComputeBudget, ids[0])
	assert.Equal(t, solana.ComputeBudget, ids[1])
	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, ids[2])
	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, ids[3])
	assert.Equal(t, solana.SystemProgramID, ids[4])
	assert.Equal(t, solana.TokenProgramID, ids[5])
	assert.Equal(t, pool.AmmV4Program, ids[6])
	assert.Equal(t, solana.TokenProgramID, ids[7])
}

func TestPlanSellOrder(t *testing.T) {
	instructions, err := Plan(testRequest(types.SideSell))
	require.NoError(t, err)

	// No wrap step on sells; close still unwraps the proceeds.
	require.Len(t, instructions, 6)
	ids := programIDs(t, instructions)
	assert.Equal(t, solana.ComputeBudget, ids[0])
	assert.Equal(t, solana.ComputeBudget, ids[1])
	assert.Equal(t, pool.AmmV4Program, ids[4])
	assert.Equal(t, solana.TokenProgramID, ids[5])
}

func TestPlanSwapEncoding(t *testing.T) {
	req := testRequest(types.SideBuy)
	instructions, err := Plan(req)
	require.NoError(t, err)

	swapIx := instructions[6]
	data, err := swapIx.Data()
	require.NoError(t, err)
	require.Len(t, data, 17)
	assert.Equal(t, byte(swapBaseInTag), data[0])
	assert.Equal(t, req.Quote.AmountIn, binary.LittleEndian.Uint64(data[1:9]))
	assert.Equal(t, req.Quote.MinAmountOut, binary.LittleEndian.Uint64(data[9:17]))
}

func TestPlanSwapAccounts(t *testing.T) {
	req := testRequest(types.SideBuy)
	instructions, err := Plan(req)
	require.NoError(t, err)

	accounts := instructions[6].Accounts()
	require.Len(t, accounts, 18)
	assert.Equal(t, solana.TokenProgramID, accounts[0].PublicKey)
	assert.Equal(t, req.Pool.Amm, accounts[1].PublicKey)
	assert.Equal(t, req.Pool.Market.VaultSigner, accounts[14].PublicKey)

	wsolATA, _, err := solana.FindAssociatedTokenAddress(req.Owner, solana.WrappedSol)
	require.NoError(t, err)
	tokenATA, _, err := solana.FindAssociatedTokenAddress(req.Owner, req.Pool.TokenMint())
	require.NoError(t, err)
	assert.Equal(t, wsolATA, accounts[15].PublicKey, "buys spend from the wsol ata")
	assert.Equal(t, tokenATA, accounts[16].PublicKey)
	assert.Equal(t, req.Owner, accounts[17].PublicKey)
	assert.True(t, accounts[17].IsSigner)
}

func TestPlanAppendsTipTransfer(t *testing.T) {
	req := testRequest(types.SideSell)
	req.TipLamports = 250_000
	instructions, err := Plan(req)
	require.NoError(t, err)

	require.Len(t, instructions, 7)
	tip := instructions[6]
	assert.Equal(t, solana.SystemProgramID, tip.ProgramID())
	assert.Equal(t, req.Owner, tip.Accounts()[0].PublicKey)
}

func TestPlanRejectsBadInput(t *testing.T) {
	req := testRequest(types.SideBuy)
	req.Side = "hold"
	_, err := Plan(req)
	assert.ErrorIs(t, err, types.ErrUnsupportedSide)

	req = testRequest(types.SideBuy)
	req.Quote = nil
	_, err = Plan(req)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)

	req = testRequest(types.SideBuy)
	req.Owner = solana.PublicKey{}
	_, err = Plan(req)
	var verr types.ValidationError
	assert.ErrorAs(t, err, &verr)
}
