package rmath

import "fmt"

// Fixed is a signed Q16.16 fixed-point number.
type Fixed int32

// One is the Fixed representation of 1.
const One Fixed = 1 << 16

// FromInt converts an integer to Fixed.
// It panics if n does not fit in the 16 integer bits.
func FromInt(n int) Fixed {
	if n < -(1<<15) || n >= 1<<15 {
		panic(fmt.Errorf("BUG: %d out of Fixed integer range", n))
	}
	return Fixed(n << 16)
}

// Int truncates f toward zero and returns the integer part.
func (f Fixed) Int() int {
	return int(f / One)
}

// Float returns the nearest float64.
// This is for display and test assertions only;
// nothing reachable from a simulation step may branch on the result.
func (f Fixed) Float() float64 {
	return float64(f) / float64(One)
}

// Mul returns the Q16.16 product of f and g.
func (f Fixed) Mul(g Fixed) Fixed {
	return Fixed((int64(f) * int64(g)) >> 16)
}

// Div returns the Q16.16 quotient f/g.
// Division by zero panics, same as integer division.
func (f Fixed) Div(g Fixed) Fixed {
	return Fixed((int64(f) << 16) / int64(g))
}

// Abs returns the magnitude of f.
func (f Fixed) Abs() Fixed {
	if f < 0 {
		return -f
	}
	return f
}

// Sqrt returns the square root of f,
// computed with a bit-by-bit integer method.
// It panics if f is negative.
func Sqrt(f Fixed) Fixed {
	if f < 0 {
		panic(fmt.Errorf("BUG: Sqrt of negative Fixed %d", f))
	}

	// Shifting left by 16 first means the integer square root
	// of the shifted value is already in Q16.16.
	v := uint64(f) << 16

	var res uint64
	// Highest power of four <= v.
	bit := uint64(1) << 46
	for bit > v {
		bit >>= 2
	}

	for bit != 0 {
		if v >= res+bit {
			v -= res + bit
			res = (res >> 1) + bit
		} else {
			res >>= 1
		}
		bit >>= 2
	}

	return Fixed(res)
}
