// Package noise samples the calibrated randomness added to disclosed counts.
// Sampling goes through an interface so tests can run with a zero sampler and
// assert exact post-filter values.
package noise

import (
	"crypto/rand"
	"encoding/binary"
	"math"
)

// Sampler draws one noise value for a count with the given sensitivity and
// epsilon. Larger epsilon means less noise.
type Sampler interface {
	Laplace(sensitivity float64, epsilon float64) (float64, error)
}

// CryptoSampler draws from crypto/rand. Disclosed counts are an adversarial
// surface, so a seedable PRNG is not acceptable here.
type CryptoSampler struct{}

// Laplace inverts the Laplace CDF at a uniform draw: scale b = sensitivity/ε,
// negative branch below the median, positive above.
func (CryptoSampler) Laplace(sensitivity float64, epsilon float64) (float64, error) {
	if epsilon <= 0 {
		return 0, nil
	}
	u, err := uniform()
	if err != nil {
		return 0, err
	}
	b := sensitivity / epsilon
	if u < 0.5 {
		return b * math.Log(2*u), nil
	}
	return -b * math.Log(2*(1-u)), nil
}

// Gaussian draws N(0, sigma) via Box-Muller, for callers that prefer
// concentrated-DP style noise.
func (CryptoSampler) Gaussian(sigma float64) (float64, error) {
	u1, err := uniform()
	if err != nil {
		return 0, err
	}
	u2, err := uniform()
	if err != nil {
		return 0, err
	}
	return sigma * math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2), nil
}

// uniform returns a draw from the open interval (0, 1); the endpoints are
// excluded so the log transforms above stay finite.
func uniform() (float64, error) {
	var raw [8]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return 0, err
	}
	value := float64(binary.BigEndian.Uint64(raw[:])>>11) / float64(1<<53)
	if value <= 0 {
		value = math.SmallestNonzeroFloat64
	}
	if value >= 1 {
		value = 1 - 1e-16
	}
	return value, nil
}

// Clamp keeps a noised count plausible: released counts are never negative.
func Clamp(value float64) float64 {
	if value < 0 {
		return 0
	}
	return value
}

var _ Sampler = CryptoSampler{}
