package engine

import "math/big"

// fee: 0.3%, kept as 997/1000 of the input.
var (
	feeMul = big.NewInt(997)
	feeDen = big.NewInt(1000)

	one   = big.NewInt(1)
	two   = big.NewInt(2)
	three = big.NewInt(3)
)

// getAmountOut prices a constant-product swap with the fee applied to the
// input side:
//
//	amountOut = floor(amountIn*997*reserveOut / (reserveIn*1000 + amountIn*997))
//
// The floor division is what keeps reserveIn'*reserveOut' >= reserveIn*reserveOut.
func getAmountOut(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	amountInWithFee := new(big.Int).Mul(amountIn, feeMul)
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, feeDen)
	denominator.Add(denominator, amountInWithFee)
	return numerator.Div(numerator, denominator)
}

// isqrt returns the largest z with z*z <= y, by Newton's method seeded at
// y/2+1. Share amounts hang off this exact iteration, so it is implemented
// verbatim rather than via a float sqrt whose rounding can disagree at edge
// values.
func isqrt(y *big.Int) *big.Int {
	z := new(big.Int)
	if y.Cmp(three) > 0 {
		z.Set(y)
		x := new(big.Int).Quo(y, two)
		x.Add(x, one)
		for x.Cmp(z) < 0 {
			z.Set(x)
			x.Quo(y, x)
			x.Add(x, z)
			x.Quo(x, two)
		}
	} else if y.Sign() != 0 {
		z.Set(one)
	}
	return z
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}
