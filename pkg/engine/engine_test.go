package engine

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solbotics/trade-engine/pkg/pool"
	"github.com/solbotics/trade-engine/pkg/submit"
	"github.com/solbotics/trade-engine/pkg/swap"
	"github.com/solbotics/trade-engine/pkg/types"
	"github.com/solbotics/trade-engine/pkg/wallet"
)

type fakeDirectory struct {
	handle   *pool.Handle
	reserves pool.Reserves
	err      error
}

func (f *fakeDirectory) FindBestPool(ctx context.Context, mint solana.PublicKey) (*pool.Handle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.handle, nil
}

func (f *fakeDirectory) GetReserves(ctx context.Context, h *pool.Handle) (pool.Reserves, error) {
	return f.reserves, nil
}

type fakeBuilder struct{}

func (fakeBuilder) Build(ctx context.Context, req swap.Request) (*swap.BuiltSwap, error) {
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1, req.Owner, solana.NewWallet().PublicKey()).Build(),
		},
		solana.Hash{},
		solana.TransactionPayer(req.Owner),
	)
	if err != nil {
		return nil, err
	}
	return &swap.BuiltSwap{Tx: tx, Quote: req.Quote, Owner: req.Owner, TipLamports: req.TipLamports}, nil
}

type fakeSubmitter struct {
	lastAmountIn uint64
	calls        int
}

func (f *fakeSubmitter) Submit(ctx context.Context, built *swap.BuiltSwap, signer wallet.Signer) (*submit.Result, error) {
	f.calls++
	f.lastAmountIn = built.Quote.AmountIn
	// The built transaction arrives unsigned; signing belongs to the pipeline.
	if len(built.Tx.Signatures) != 0 {
		return nil, types.ErrSimulationFailed
	}
	return &submit.Result{Signature: solana.Signature{1}, Slot: 42, Path: submit.PathBroadcast}, nil
}

type fakeBalances struct {
	sol   uint64
	token uint64
}

func (f fakeBalances) SOL(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	return f.sol, nil
}

func (f fakeBalances) Token(ctx context.Context, owner, mint solana.PublicKey) (uint64, error) {
	return f.token, nil
}

type okSimulator struct{}

func (okSimulator) Simulate(ctx context.Context, tx *solana.Transaction) error { return nil }

func testEngine(t *testing.T, balances Balances, sim submit.Simulator) (*Engine, *fakeSubmitter, *pool.Handle) {
	t.Helper()
	h := &pool.Handle{
		Amm:           solana.NewWallet().PublicKey(),
		BaseMint:      solana.NewWallet().PublicKey(),
		QuoteMint:     solana.WrappedSol,
		BaseDecimals:  6,
		QuoteDecimals: 9,
		SwapFeeBps:    25,
	}
	dir := &fakeDirectory{
		handle: h,
		reserves: pool.Reserves{
			BaseVault:  1_000_000_000_000,
			QuoteVault: 500_000_000_000,
		},
	}
	sub := &fakeSubmitter{}
	return New(dir, fakeBuilder{}, sub, balances, sim, zerolog.Nop()), sub, h
}

func testSigner() wallet.Signer {
	return wallet.NewLocalFromPrivateKey(solana.NewWallet().PrivateKey)
}

func TestExecuteSwapPercentBuy(t *testing.T) {
	e, sub, h := testEngine(t, fakeBalances{sol: 2_010_000_000}, okSimulator{})

	_, err := e.ExecuteSwap(context.Background(), testSigner(), types.SwapIntent{
		Mint:        h.TokenMint(),
		Side:        types.SideBuy,
		Quantity:    "50%",
		SlippageBps: 100,
		Priority:    types.PriorityFast,
	})
	require.NoError(t, err)

	// Spendable is balance minus the fee buffer; half of 2 SOL.
	assert.Equal(t, uint64(1_000_000_000), sub.lastAmountIn)
	assert.Equal(t, 1, sub.calls)
}

func TestExecuteSwapLiteralSell(t *testing.T) {
	e, sub, h := testEngine(t, fakeBalances{token: 5_000_000}, okSimulator{})

	exec, err := e.ExecuteSwap(context.Background(), testSigner(), types.SwapIntent{
		Mint:        h.TokenMint(),
		Side:        types.SideSell,
		Quantity:    "2.5",
		SlippageBps: 100,
		Priority:    types.PriorityAvg,
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(2_500_000), sub.lastAmountIn)
	assert.NotNil(t, exec.Quote)
	assert.Equal(t, uint64(42), exec.Result.Slot)
}

func TestExecuteSwapInsufficientBalance(t *testing.T) {
	e, _, h := testEngine(t, fakeBalances{sol: 2_010_000_000}, okSimulator{})

	_, err := e.ExecuteSwap(context.Background(), testSigner(), types.SwapIntent{
		Mint:        h.TokenMint(),
		Side:        types.SideBuy,
		Quantity:    "3",
		SlippageBps: 100,
		Priority:    types.PriorityAvg,
	})
	assert.ErrorIs(t, err, types.ErrInsufficientBalance)
}

func TestExecuteSwapBuyNeedsFeeBuffer(t *testing.T) {
	e, _, h := testEngine(t, fakeBalances{sol: 5_000_000}, okSimulator{})

	_, err := e.ExecuteSwap(context.Background(), testSigner(), types.SwapIntent{
		Mint:     h.TokenMint(),
		Side:     types.SideBuy,
		Quantity: "100%",
		Priority: types.PriorityAvg,
	})
	assert.ErrorIs(t, err, types.ErrInsufficientBalance)
}

func TestExecuteSwapSellNoHoldings(t *testing.T) {
	e, _, h := testEngine(t, fakeBalances{token: 0}, okSimulator{})

	_, err := e.ExecuteSwap(context.Background(), testSigner(), types.SwapIntent{
		Mint:     h.TokenMint(),
		Side:     types.SideSell,
		Quantity: "100%",
		Priority: types.PriorityAvg,
	})
	assert.ErrorIs(t, err, types.ErrInsufficientBalance)
}

func TestFindMaxAmountUnconstrained(t *testing.T) {
	e, _, h := testEngine(t, fakeBalances{sol: 1_010_000_000}, okSimulator{})

	got, err := e.FindMaxAmount(context.Background(), testSigner(), types.SwapIntent{
		Mint:     h.TokenMint(),
		Side:     types.SideBuy,
		Quantity: types.QuantityMax,
		Priority: types.PriorityAvg,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000), got, "full spendable balance passes in one probe")
}

func TestExecuteSwapMaxQuantity(t *testing.T) {
	e, sub, h := testEngine(t, fakeBalances{sol: 1_010_000_000}, okSimulator{})

	_, err := e.ExecuteSwap(context.Background(), testSigner(), types.SwapIntent{
		Mint:        h.TokenMint(),
		Side:        types.SideBuy,
		Quantity:    types.QuantityMax,
		SlippageBps: 100,
		Priority:    types.PriorityAvg,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000), sub.lastAmountIn)
}
