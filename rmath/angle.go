package rmath

// Angle is a binary angle: 65536 units make one full turn.
// Wrapping on overflow is the correct modular behavior,
// so plain addition and subtraction are safe.
type Angle uint16

const (
	QuarterTurn Angle = 1 << 14
	HalfTurn    Angle = 1 << 15
)

// Sin returns the sine of a as a Fixed in [-1, 1].
//
// This uses Bhaskara I's rational approximation,
// evaluated entirely in integer arithmetic.
// Worst-case error is under 0.2% of full scale,
// which is plenty for game simulation,
// and the result is identical on every platform.
func Sin(a Angle) Fixed {
	neg := false
	if a >= HalfTurn {
		a -= HalfTurn
		neg = true
	}

	// With a in [0, HalfTurn) covering [0, pi),
	// sin(x) ~= 16u / (5*HalfTurn^2 - 4u)
	// where u = a*(HalfTurn - a); the pi factors cancel.
	u := int64(a) * int64(uint32(HalfTurn)-uint32(a))

	num := u << 20 // 16u, then <<16 for Q16.16
	den := 5*int64(1)<<30 - 4*u

	res := Fixed(num / den)
	if neg {
		return -res
	}
	return res
}

// Cos returns the cosine of a as a Fixed in [-1, 1].
func Cos(a Angle) Fixed {
	return Sin(a + QuarterTurn)
}
