package sizefit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseByteBudget(t *testing.T) {
	cases := map[string]int64{
		"50":     50 * 1024,
		" 1 ":    1024,
		"50KB":   50 * 1000,
		"50KiB":  50 * 1024,
		"1.5 MB": 1500 * 1000,
		"800 B":  800,
	}
	for in, want := range cases {
		got, err := ParseByteBudget(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got.MaxBytes, "input %q", in)
	}
}

func TestParseByteBudget_Invalid(t *testing.T) {
	for _, in := range []string{
		"", "0", "-5", "abc", "0KB",
		"9223372036854775807 B", // rounds past MaxInt64 as a float
		"10000000000000000",     // KiB count overflows when scaled
		"20EB",
	} {
		_, err := ParseByteBudget(in)
		assert.ErrorIs(t, err, ErrInvalidConstraint, "input %q", in)
	}
}

func TestParseByteBudget_Largest(t *testing.T) {
	b, err := ParseByteBudget("9007199254740991")
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740991)*1024, b.MaxBytes)
}

func TestConstraintString(t *testing.T) {
	assert.Equal(t, "budget 50 KiB", ByteBudget{MaxBytes: 50 * 1024}.String())
	assert.Equal(t, "preset low", QualityPreset{Level: "low"}.String())
	assert.Equal(t, "dimensions 200xauto keep-aspect", DimensionSpec{Width: 200, KeepAspect: true}.String())
	assert.Equal(t, "dimensions 50%", DimensionSpec{Percent: 50}.String())
}
