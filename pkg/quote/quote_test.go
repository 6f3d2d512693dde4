package quote

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solbotics/trade-engine/pkg/pool"
	"github.com/solbotics/trade-engine/pkg/types"
)

func decimalFromFloat(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// testPool builds a token/WSOL pool with the token on the base side,
// 6 token decimals, and the given fee.
func testPool(feeBps uint64) *pool.Handle {
	return &pool.Handle{
		Amm:           solana.NewWallet().PublicKey(),
		BaseMint:      solana.NewWallet().PublicKey(),
		QuoteMint:     solana.WrappedSol,
		BaseDecimals:  6,
		QuoteDecimals: 9,
		SwapFeeBps:    feeBps,
	}
}

// 1,000,000 tokens vs 500 SOL.
func testReserves() pool.Reserves {
	return pool.Reserves{
		BaseVault:  1_000_000_000_000,
		QuoteVault: 500_000_000_000,
	}
}

func TestComputeBuy(t *testing.T) {
	h := testPool(0)
	r := testReserves()

	q, err := Compute(h, r, types.SideBuy, 5_000_000_000, 100)
	require.NoError(t, err)

	// out = 1e12 * 5e9 / (500e9 + 5e9)
	assert.Equal(t, uint64(9_900_990_099), q.AmountOut)
	assert.Equal(t, uint64(9_801_980_198), q.MinAmountOut)
	assert.Equal(t, uint64(0), q.Fee)

	// Spot is 500/1e6 = 0.0005 SOL per token; execution is worse.
	assert.True(t, q.SpotPrice.Equal(decimalFromFloat(t, "0.0005")), "spot price %s", q.SpotPrice)
	assert.True(t, q.ExecutionPrice.GreaterThan(q.SpotPrice))
	assert.True(t, q.PriceImpact.IsPositive())
}

func TestComputeSell(t *testing.T) {
	h := testPool(0)
	r := testReserves()

	q, err := Compute(h, r, types.SideSell, 10_000_000_000, 50)
	require.NoError(t, err)

	// Selling into the pool realizes below spot.
	assert.True(t, q.ExecutionPrice.LessThan(q.SpotPrice))
	assert.True(t, q.AmountOut < r.QuoteVault)
	assert.True(t, q.MinAmountOut <= q.AmountOut)
}

func TestComputeFeeOnInput(t *testing.T) {
	h := testPool(25)
	r := testReserves()

	withFee, err := Compute(h, r, types.SideBuy, 5_000_000_000, 0)
	require.NoError(t, err)
	noFee, err := Compute(testPool(0), r, types.SideBuy, 5_000_000_000, 0)
	require.NoError(t, err)

	assert.Equal(t, uint64(12_500_000), withFee.Fee)
	assert.Less(t, withFee.AmountOut, noFee.AmountOut)
}

func TestComputeMonotonic(t *testing.T) {
	h := testPool(25)
	r := testReserves()

	var prevOut uint64
	var prevImpact string
	for _, in := range []uint64{1_000_000_000, 5_000_000_000, 25_000_000_000, 125_000_000_000} {
		q, err := Compute(h, r, types.SideBuy, in, 0)
		require.NoError(t, err)
		assert.Greater(t, q.AmountOut, prevOut, "output must grow with input")
		if prevImpact != "" {
			prev := decimalFromFloat(t, prevImpact)
			assert.True(t, q.PriceImpact.GreaterThan(prev), "impact must grow with size")
		}
		prevOut = q.AmountOut
		prevImpact = q.PriceImpact.String()
	}
}

func TestComputeNeverDrainsPool(t *testing.T) {
	h := testPool(25)
	r := testReserves()

	q, err := Compute(h, r, types.SideBuy, 1<<60, 0)
	require.NoError(t, err)
	assert.Less(t, q.AmountOut, r.BaseVault)
}

func TestComputeEffectiveReserves(t *testing.T) {
	h := testPool(0)
	base := testReserves()

	// Tokens resting in open orders deepen the pool; pending PnL shallows it.
	deeper := base
	deeper.BaseOpenOrders = 250_000_000_000
	deeper.QuoteOpenOrders = 125_000_000_000

	qBase, err := Compute(h, base, types.SideBuy, 5_000_000_000, 0)
	require.NoError(t, err)
	qDeep, err := Compute(h, deeper, types.SideBuy, 5_000_000_000, 0)
	require.NoError(t, err)
	assert.True(t, qDeep.PriceImpact.LessThan(qBase.PriceImpact))

	shallower := base
	shallower.QuotePendingPnl = 400_000_000_000
	qShallow, err := Compute(h, shallower, types.SideBuy, 5_000_000_000, 0)
	require.NoError(t, err)
	assert.Greater(t, qShallow.AmountOut, qBase.AmountOut, "less SOL in pool means more tokens per SOL")
}

func TestComputeErrors(t *testing.T) {
	h := testPool(25)
	r := testReserves()

	_, err := Compute(h, r, types.SideBuy, 0, 0)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)

	_, err = Compute(h, r, types.Side("short"), 1_000_000, 0)
	assert.ErrorIs(t, err, types.ErrUnsupportedSide)

	_, err = Compute(h, r, types.SideBuy, 1_000_000, 10_001)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)

	_, err = Compute(h, pool.Reserves{}, types.SideBuy, 1_000_000, 0)
	assert.ErrorIs(t, err, types.ErrPoolNotFound)
}
