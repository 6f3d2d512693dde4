package maxsize

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solbotics/trade-engine/pkg/types"
)

// thresholdProber succeeds for any amount at or below max and counts probes.
func thresholdProber(max uint64, calls *int) Prober {
	return ProbeFunc(func(ctx context.Context, amount uint64) error {
		*calls++
		if amount > max {
			return types.NewSimulationError("custom program error: 0x1", nil)
		}
		return nil
	})
}

func TestFindMaxFullBalancePasses(t *testing.T) {
	var calls int
	f := NewFinder(thresholdProber(1_000_000, &calls), zerolog.Nop())

	got, err := f.FindMax(context.Background(), 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), got)
	assert.Equal(t, 1, calls, "unconstrained wallet needs a single probe")
}

func TestFindMaxConverges(t *testing.T) {
	var calls int
	f := NewFinder(thresholdProber(600_000, &calls), zerolog.Nop())

	got, err := f.FindMax(context.Background(), 1_000_000)
	require.NoError(t, err)

	// Result is known-good and within one search step of the true maximum.
	assert.LessOrEqual(t, got, uint64(600_000))
	assert.Greater(t, got, uint64(590_000))
	assert.LessOrEqual(t, calls, Iterations, "the full-balance check counts as the first search step")
}

func TestFindMaxNothingPasses(t *testing.T) {
	var calls int
	f := NewFinder(thresholdProber(0, &calls), zerolog.Nop())

	_, err := f.FindMax(context.Background(), 1_000_000)
	assert.ErrorIs(t, err, types.ErrMaxAmountNotFound)
}

func TestFindMaxZeroUpper(t *testing.T) {
	f := NewFinder(thresholdProber(100, new(int)), zerolog.Nop())
	_, err := f.FindMax(context.Background(), 0)
	assert.ErrorIs(t, err, types.ErrMaxAmountNotFound)
}

func TestFindMaxContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := NewFinder(ProbeFunc(func(ctx context.Context, amount uint64) error {
		cancel()
		return context.Canceled
	}), zerolog.Nop())

	_, err := f.FindMax(ctx, 1_000_000)
	assert.ErrorIs(t, err, context.Canceled)
}
