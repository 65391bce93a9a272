package rmath_test

import (
	"testing"

	"github.com/rewind-engine/rewind/rmath"
	"github.com/stretchr/testify/require"
)

// Every assertion in this file pins an exact bit pattern.
// If any of these change, resimulation is no longer byte-identical
// with states produced by earlier builds, which breaks rollback
// against peers running those builds.

func TestFixed_arithmetic(t *testing.T) {
	t.Parallel()

	require.Equal(t, rmath.Fixed(1<<16), rmath.FromInt(1))
	require.Equal(t, rmath.FromInt(12), rmath.FromInt(3).Mul(rmath.FromInt(4)))
	require.Equal(t, rmath.FromInt(-12), rmath.FromInt(3).Mul(rmath.FromInt(-4)))
	require.Equal(t, rmath.FromInt(3), rmath.FromInt(12).Div(rmath.FromInt(4)))

	// Truncation toward zero on inexact products.
	third := rmath.One.Div(rmath.FromInt(3))
	require.Equal(t, rmath.Fixed(21845), third)

	require.Equal(t, 5, rmath.FromInt(5).Int())
	require.Equal(t, rmath.FromInt(7), rmath.FromInt(-7).Abs())
}

func TestFromInt_panicsOutOfRange(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() {
		rmath.FromInt(1 << 15)
	})
}

func TestSqrt(t *testing.T) {
	t.Parallel()

	require.Equal(t, rmath.Fixed(0), rmath.Sqrt(0))
	require.Equal(t, rmath.FromInt(2), rmath.Sqrt(rmath.FromInt(4)))
	require.Equal(t, rmath.FromInt(181), rmath.Sqrt(rmath.FromInt(32761)))

	// sqrt(2) in Q16.16, truncated.
	require.Equal(t, rmath.Fixed(92681), rmath.Sqrt(rmath.FromInt(2)))

	require.Panics(t, func() {
		rmath.Sqrt(rmath.FromInt(-1))
	})
}

func TestSin(t *testing.T) {
	t.Parallel()

	require.Equal(t, rmath.Fixed(0), rmath.Sin(0))
	require.Equal(t, rmath.One, rmath.Sin(rmath.QuarterTurn))
	require.Equal(t, rmath.Fixed(0), rmath.Sin(rmath.HalfTurn))
	require.Equal(t, -rmath.One, rmath.Sin(rmath.HalfTurn+rmath.QuarterTurn))

	// Bhaskara's approximation at an eighth turn;
	// the true value is 46341, well within the documented error bound.
	require.Equal(t, rmath.Fixed(46260), rmath.Sin(rmath.Angle(8192)))

	// Odd symmetry over the sampled range, including the wrap.
	for a := uint32(0); a < 1<<16; a += 977 {
		ang := rmath.Angle(a)
		require.Equal(t, -rmath.Sin(ang), rmath.Sin(ang+rmath.HalfTurn), "angle %d", a)
	}
}

func TestCos(t *testing.T) {
	t.Parallel()

	require.Equal(t, rmath.One, rmath.Cos(0))
	require.Equal(t, rmath.Fixed(0), rmath.Cos(rmath.QuarterTurn))
	require.Equal(t, -rmath.One, rmath.Cos(rmath.HalfTurn))
}
