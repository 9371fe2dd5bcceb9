package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundHalvesAwayFromZero(t *testing.T) {
	require.InDelta(t, 0.13, Round(0.125, 0.01), 1e-9)
	require.InDelta(t, -0.13, Round(-0.125, 0.01), 1e-9)
	require.InDelta(t, 42.0, Round(42.004, 0.01), 1e-9)
}

func TestIsZero(t *testing.T) {
	require.True(t, IsZero(0.004, 0.01))
	require.True(t, IsZero(-0.004, 0.01))
	require.False(t, IsZero(0.01, 0.01))
	require.False(t, IsZero(-150, 0.01))
}

func TestCompare(t *testing.T) {
	require.Equal(t, 0, Compare(0.001, 0.002, 0.01))
	require.Equal(t, 1, Compare(10.02, 10.01, 0.01))
	require.Equal(t, -1, Compare(-0.02, 0, 0.01))
}

func TestRoundDigits(t *testing.T) {
	require.InDelta(t, 5.5, RoundDigits(5.50004, 4), 1e-9)
	require.True(t, IsZeroDigits(0.00004, 4))
	require.False(t, IsZeroDigits(0.0001, 4))
}
