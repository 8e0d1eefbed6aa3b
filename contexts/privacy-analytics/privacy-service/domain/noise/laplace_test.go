package noise

import (
	"math"
	"testing"
)

func TestLaplaceSamplesAreFinite(t *testing.T) {
	sampler := CryptoSampler{}
	for i := 0; i < 1000; i++ {
		sample, err := sampler.Laplace(1, 0.5)
		if err != nil {
			t.Fatalf("laplace draw failed: %v", err)
		}
		if math.IsNaN(sample) || math.IsInf(sample, 0) {
			t.Fatalf("non-finite laplace sample: %f", sample)
		}
	}
}

func TestLaplaceCenteredAtZero(t *testing.T) {
	sampler := CryptoSampler{}
	const draws = 4000
	sum := 0.0
	for i := 0; i < draws; i++ {
		sample, err := sampler.Laplace(1, 1)
		if err != nil {
			t.Fatalf("laplace draw failed: %v", err)
		}
		sum += sample
	}
	mean := sum / draws
	// Scale b=1 gives variance 2; the sample mean of 4000 draws stays well
	// inside this band.
	if math.Abs(mean) > 0.25 {
		t.Fatalf("laplace mean too far from zero: %f", mean)
	}
}

func TestLaplaceScaleGrowsAsEpsilonShrinks(t *testing.T) {
	sampler := CryptoSampler{}
	const draws = 2000
	spread := func(epsilon float64) float64 {
		total := 0.0
		for i := 0; i < draws; i++ {
			sample, err := sampler.Laplace(1, epsilon)
			if err != nil {
				t.Fatalf("laplace draw failed: %v", err)
			}
			total += math.Abs(sample)
		}
		return total / draws
	}
	if spread(0.1) <= spread(2.0) {
		t.Fatalf("smaller epsilon should produce wider noise")
	}
}

func TestLaplaceNonPositiveEpsilon(t *testing.T) {
	sampler := CryptoSampler{}
	sample, err := sampler.Laplace(1, 0)
	if err != nil || sample != 0 {
		t.Fatalf("non-positive epsilon should draw zero noise, got %f err=%v", sample, err)
	}
}

func TestGaussianFinite(t *testing.T) {
	sampler := CryptoSampler{}
	for i := 0; i < 1000; i++ {
		sample, err := sampler.Gaussian(2)
		if err != nil {
			t.Fatalf("gaussian draw failed: %v", err)
		}
		if math.IsNaN(sample) || math.IsInf(sample, 0) {
			t.Fatalf("non-finite gaussian sample: %f", sample)
		}
	}
}

func TestClamp(t *testing.T) {
	if Clamp(-3.2) != 0 {
		t.Fatalf("negative counts must clamp to zero")
	}
	if Clamp(4.5) != 4.5 {
		t.Fatalf("positive counts pass through")
	}
}
