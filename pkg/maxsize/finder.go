// Package maxsize finds the largest amount that still passes simulation,
// by binary search over a caller-supplied probe.
package maxsize

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/solbotics/trade-engine/pkg/types"
)

// Iterations bounds the binary search. Eight halvings of the full balance
// give sub-percent resolution, which is tighter than pool drift anyway.
const Iterations = 8

// Prober simulates a swap of the given size. A nil error means the size
// would execute; any error marks the size as too large.
type Prober interface {
	Probe(ctx context.Context, amount uint64) error
}

// ProbeFunc adapts a function to the Prober interface.
type ProbeFunc func(ctx context.Context, amount uint64) error

func (f ProbeFunc) Probe(ctx context.Context, amount uint64) error {
	return f(ctx, amount)
}

// Finder runs the search.
type Finder struct {
	prober Prober
	log    zerolog.Logger
}

// NewFinder builds a Finder over the given prober.
func NewFinder(prober Prober, log zerolog.Logger) *Finder {
	return &Finder{
		prober: prober,
		log:    log.With().Str("component", "maxsize").Logger(),
	}
}

// FindMax returns the largest probed-good amount not exceeding upper. The
// full balance is always the first candidate, so the common case of an
// unconstrained wallet costs a single probe. Convergence to zero yields
// types.ErrMaxAmountNotFound.
func (f *Finder) FindMax(ctx context.Context, upper uint64) (uint64, error) {
	if upper == 0 {
		return 0, fmt.Errorf("%w: zero upper bound", types.ErrMaxAmountNotFound)
	}

	var lo uint64 // largest known-good
	hi := upper   // smallest known-bad
	for i := 0; i < Iterations; i++ {
		candidate := lo + (hi-lo)/2
		if i == 0 {
			// Full balance first: the unconstrained wallet costs one probe.
			candidate = upper
		}
		if candidate == lo {
			break
		}
		if err := f.probe(ctx, candidate); err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			hi = candidate
		} else {
			lo = candidate
			if lo == hi {
				return lo, nil
			}
		}
	}

	if lo == 0 {
		return 0, fmt.Errorf("%w: no size under %d passed simulation", types.ErrMaxAmountNotFound, upper)
	}
	return lo, nil
}

func (f *Finder) probe(ctx context.Context, amount uint64) error {
	err := f.prober.Probe(ctx, amount)
	f.log.Debug().Uint64("amount", amount).Err(err).Msg("probe")
	return err
}
