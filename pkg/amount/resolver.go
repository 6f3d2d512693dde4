// Package amount resolves user-facing amount and threshold specs.
//
// A spec is either a percentage ("50%") or an absolute decimal ("2.5").
// For amount sizing the resolved value is the trade quantity; for threshold
// sizing a percentage is applied to an anchor price while an absolute spec is
// used as the threshold directly. The percent/absolute distinction is carried
// explicitly in ThresholdSpec rather than re-inferred from the resolved value.
package amount

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/solbotics/trade-engine/pkg/types"
)

var hundred = decimal.NewFromInt(100)

// ResolveQuantity converts an amount spec into a quantity. "<n>%" yields
// base*n/100 with n in [0,100]; anything else is parsed as a literal decimal
// and returned unchanged regardless of base.
func ResolveQuantity(base decimal.Decimal, spec string) (decimal.Decimal, error) {
	spec = strings.TrimSpace(spec)
	if pct, ok := strings.CutSuffix(spec, "%"); ok {
		n, err := decimal.NewFromString(strings.TrimSpace(pct))
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q: %v", types.ErrInvalidAmount, spec, err)
		}
		if n.IsNegative() || n.GreaterThan(hundred) {
			return decimal.Zero, fmt.Errorf("%w: percentage %q outside [0,100]", types.ErrInvalidAmount, spec)
		}
		return base.Mul(n).Div(hundred), nil
	}
	n, err := decimal.NewFromString(spec)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q: %v", types.ErrInvalidAmount, spec, err)
	}
	return n, nil
}

// ThresholdKind distinguishes percentage deltas from absolute price levels.
type ThresholdKind int

const (
	Percent ThresholdKind = iota
	Absolute
)

// ThresholdRole constrains the allowed percentage range.
type ThresholdRole int

const (
	// TakeProfit thresholds accept percentages >= 0.
	TakeProfit ThresholdRole = iota
	// StopLoss thresholds accept percentages in [-100, 0].
	StopLoss
)

// ThresholdSpec is a parsed threshold: either a percentage delta relative to
// an anchor price or an absolute price level.
type ThresholdSpec struct {
	Kind  ThresholdKind
	Value decimal.Decimal
}

// ParseThreshold parses a threshold spec and validates the percentage range
// for the given role. Absolute specs are not range-checked.
func ParseThreshold(spec string, role ThresholdRole) (ThresholdSpec, error) {
	spec = strings.TrimSpace(spec)
	if pct, ok := strings.CutSuffix(spec, "%"); ok {
		n, err := decimal.NewFromString(strings.TrimSpace(pct))
		if err != nil {
			return ThresholdSpec{}, fmt.Errorf("%w: %q: %v", types.ErrInvalidAmount, spec, err)
		}
		switch role {
		case TakeProfit:
			if n.IsNegative() {
				return ThresholdSpec{}, fmt.Errorf("%w: take-profit percentage %q must be >= 0", types.ErrInvalidAmount, spec)
			}
		case StopLoss:
			if n.IsPositive() || n.LessThan(hundred.Neg()) {
				return ThresholdSpec{}, fmt.Errorf("%w: stop-loss percentage %q outside [-100,0]", types.ErrInvalidAmount, spec)
			}
		}
		return ThresholdSpec{Kind: Percent, Value: n}, nil
	}
	n, err := decimal.NewFromString(spec)
	if err != nil {
		return ThresholdSpec{}, fmt.Errorf("%w: %q: %v", types.ErrInvalidAmount, spec, err)
	}
	return ThresholdSpec{Kind: Absolute, Value: n}, nil
}

// Threshold resolves the spec against an anchor price. Percent specs shift
// the anchor by value/100 of itself; absolute specs ignore the anchor.
func (s ThresholdSpec) Threshold(anchor decimal.Decimal) decimal.Decimal {
	if s.Kind == Absolute {
		return s.Value
	}
	return anchor.Add(anchor.Mul(s.Value).Div(hundred))
}

// Below reports whether a crossing means the live price dropped to the
// threshold (stop-loss style) rather than rose to it.
func (s ThresholdSpec) Below(anchor decimal.Decimal) bool {
	if s.Kind == Percent {
		return s.Value.IsNegative()
	}
	return s.Value.LessThan(anchor)
}

// Crossed reports whether live satisfies the threshold relative to anchor.
func (s ThresholdSpec) Crossed(anchor, live decimal.Decimal) bool {
	target := s.Threshold(anchor)
	if s.Below(anchor) {
		return live.LessThanOrEqual(target)
	}
	return live.GreaterThanOrEqual(target)
}

// ToBaseUnits converts a human-denominated quantity into integer base units
// for a mint with the given decimals, truncating any sub-unit remainder.
func ToBaseUnits(q decimal.Decimal, decimals uint8) (uint64, error) {
	scaled := q.Shift(int32(decimals)).Truncate(0)
	if scaled.IsNegative() {
		return 0, fmt.Errorf("%w: negative quantity %s", types.ErrInvalidAmount, q)
	}
	if !scaled.BigInt().IsUint64() {
		return 0, fmt.Errorf("%w: quantity %s overflows u64", types.ErrInvalidAmount, q)
	}
	return scaled.BigInt().Uint64(), nil
}

// FromBaseUnits converts integer base units back to a human quantity.
func FromBaseUnits(units uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromUint64(units).Shift(-int32(decimals))
}
