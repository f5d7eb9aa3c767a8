package query

import "fmt"

// Factorial returns n! as a float64. Accurate for small n; overflows to
// +Inf past n = 170, which is acceptable for dice-count arguments.
func Factorial(n int) float64 {
	if n < 0 {
		return 0
	}
	out := 1.0
	for i := 2; i <= n; i++ {
		out *= float64(i)
	}
	return out
}

// BinomialCoefficient returns C(n, k) using the multiplicative form to
// avoid overflowing intermediate factorials.
func BinomialCoefficient(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	out := 1.0
	for i := 1; i <= k; i++ {
		out *= float64(n-k+i) / float64(i)
	}
	return out
}

// MultinomialProbability returns the probability of observing the given
// category counts in len-counts categories with the given per-category
// probabilities. The counts and probs slices must be the same length and
// the probabilities must sum to 1.
func MultinomialProbability(counts []int, probs []float64) (float64, error) {
	if len(counts) != len(probs) {
		return 0, fmt.Errorf("query: multinomial needs matching counts and probabilities, got %d and %d",
			len(counts), len(probs))
	}
	n := 0
	for _, c := range counts {
		if c < 0 {
			return 0, fmt.Errorf("query: multinomial count must be non-negative, got %d", c)
		}
		n += c
	}
	coeff := Factorial(n)
	p := 1.0
	for i, c := range counts {
		coeff /= Factorial(c)
		for j := 0; j < c; j++ {
			p *= probs[i]
		}
	}
	return coeff * p, nil
}
