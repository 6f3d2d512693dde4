package amount

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solbotics/trade-engine/pkg/types"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestResolveQuantity(t *testing.T) {
	base := dec(t, "12.5")

	for _, tc := range []struct {
		spec string
		want string
	}{
		{"100%", "12.5"},
		{"50%", "6.25"},
		{"0%", "0"},
		{"3.5", "3.5"},
		{" 25 % ", "3.125"},
	} {
		got, err := ResolveQuantity(base, tc.spec)
		require.NoError(t, err, tc.spec)
		assert.True(t, got.Equal(dec(t, tc.want)), "%s: got %s want %s", tc.spec, got, tc.want)
	}
}

func TestResolveQuantityInvalid(t *testing.T) {
	base := dec(t, "10")
	for _, spec := range []string{"", "abc", "101%", "-5%", "%"} {
		_, err := ResolveQuantity(base, spec)
		assert.ErrorIs(t, err, types.ErrInvalidAmount, spec)
	}
}

func TestParseThreshold(t *testing.T) {
	anchor := dec(t, "100")

	tp, err := ParseThreshold("100%", TakeProfit)
	require.NoError(t, err)
	assert.Equal(t, Percent, tp.Kind)
	assert.True(t, tp.Threshold(anchor).Equal(dec(t, "200")))
	assert.False(t, tp.Below(anchor))

	sl, err := ParseThreshold("-50%", StopLoss)
	require.NoError(t, err)
	assert.True(t, sl.Threshold(anchor).Equal(dec(t, "50")))
	assert.True(t, sl.Below(anchor))

	abs, err := ParseThreshold("80", StopLoss)
	require.NoError(t, err)
	assert.Equal(t, Absolute, abs.Kind)
	assert.True(t, abs.Threshold(anchor).Equal(dec(t, "80")))
	assert.True(t, abs.Below(anchor), "80 sits under the 100 anchor")
}

func TestParseThresholdRanges(t *testing.T) {
	_, err := ParseThreshold("-10%", TakeProfit)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)

	_, err = ParseThreshold("10%", StopLoss)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)

	_, err = ParseThreshold("-150%", StopLoss)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)

	// Absolute specs skip the range check entirely.
	_, err = ParseThreshold("250", StopLoss)
	assert.NoError(t, err)
}

func TestThresholdCrossed(t *testing.T) {
	anchor := dec(t, "100")

	tp, err := ParseThreshold("50%", TakeProfit)
	require.NoError(t, err)
	assert.False(t, tp.Crossed(anchor, dec(t, "149")))
	assert.True(t, tp.Crossed(anchor, dec(t, "150")))
	assert.True(t, tp.Crossed(anchor, dec(t, "151")))

	sl, err := ParseThreshold("-20%", StopLoss)
	require.NoError(t, err)
	assert.False(t, sl.Crossed(anchor, dec(t, "81")))
	assert.True(t, sl.Crossed(anchor, dec(t, "80")))
	assert.True(t, sl.Crossed(anchor, dec(t, "79")))
}

func TestBaseUnitsRoundTrip(t *testing.T) {
	units, err := ToBaseUnits(dec(t, "1.234567"), 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_234_567), units)
	assert.True(t, FromBaseUnits(units, 6).Equal(dec(t, "1.234567")))

	// Sub-unit precision truncates rather than rounding.
	units, err = ToBaseUnits(dec(t, "0.0000019"), 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), units)

	_, err = ToBaseUnits(dec(t, "-1"), 6)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)
}
