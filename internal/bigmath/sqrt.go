// Package bigmath provides arbitrary-precision helpers for wei-scale
// arithmetic that must never be down-cast to a 64-bit float.
package bigmath

import "math/big"

// ISqrt returns the integer square root of n (floor(sqrt(n))) using
// Newton's method. n must be non-negative; ISqrt panics otherwise.
func ISqrt(n *big.Int) *big.Int {
	if n.Sign() < 0 {
		panic("bigmath: ISqrt of negative number")
	}
	if n.Sign() == 0 {
		return big.NewInt(0)
	}

	x := new(big.Int).Set(n)
	one := big.NewInt(1)
	two := big.NewInt(2)

	// Initial guess: 2^(floor(bitlen/2)+1) is always >= sqrt(n).
	guess := new(big.Int).Lsh(one, uint(n.BitLen()/2+1))

	for {
		// next = (guess + n/guess) / 2
		next := new(big.Int).Div(x, guess)
		next.Add(next, guess)
		next.Div(next, two)

		if next.Cmp(guess) >= 0 {
			break
		}
		guess = next
	}

	// Correct for the rare off-by-one Newton's method can leave behind.
	for {
		sq := new(big.Int).Mul(guess, guess)
		if sq.Cmp(x) <= 0 {
			break
		}
		guess.Sub(guess, one)
	}
	return guess
}

// StdDev computes the population standard deviation of samples (as a
// floor integer) given their mean, using the identity
// stddev = sqrt(sum((x-mean)^2) / n).
func StdDev(samples []*big.Int, mean *big.Int) *big.Int {
	if len(samples) == 0 {
		return big.NewInt(0)
	}

	sumSq := big.NewInt(0)
	for _, s := range samples {
		diff := new(big.Int).Sub(s, mean)
		diff.Mul(diff, diff)
		sumSq.Add(sumSq, diff)
	}
	variance := new(big.Int).Div(sumSq, big.NewInt(int64(len(samples))))
	return ISqrt(variance)
}

// Mean computes the floor integer mean of samples.
func Mean(samples []*big.Int) *big.Int {
	if len(samples) == 0 {
		return big.NewInt(0)
	}
	sum := big.NewInt(0)
	for _, s := range samples {
		sum.Add(sum, s)
	}
	return sum.Div(sum, big.NewInt(int64(len(samples))))
}
