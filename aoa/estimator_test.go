package aoa

import (
	"errors"
	"math"
	"testing"
)

func unitSquare() [][]float64 {
	return [][]float64{
		{0, 0},
		{1, 0},
		{0, 1},
		{1, 1},
	}
}

func uniformWeights(p int) []float64 {
	w := make([]float64, p)
	for i := range w {
		w[i] = 1.0
	}
	return w
}

func TestEstimatorUnitSquareCenter(t *testing.T) {
	t.Parallel()

	estimator, err := NewEstimator(unitSquare(), uniformWeights(2))
	if err != nil {
		t.Fatalf("NewEstimator returned error: %v", err)
	}

	result, err := estimator.Apply([][]float64{{0.5, 0.5}})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	// Center-to-corner distance over the average of the six pairwise corner
	// distances. Standardization scales both axes identically here, so the
	// ratio reduces to 3(sqrt(2)-1)/2.
	expected := 3 * (math.Sqrt2 - 1) / 2
	if math.Abs(result.DI[0]-expected) > 1e-12 {
		t.Fatalf("center DI = %.12f, expected %.12f", result.DI[0], expected)
	}
	if !result.Inside[0] {
		t.Fatalf("center of the reference hull should be inside the AOA (DI=%.4f, threshold=%.4f)",
			result.DI[0], result.Threshold)
	}
}

func TestEstimatorFarTargetOutsideAOA(t *testing.T) {
	t.Parallel()

	estimator, err := NewEstimator(unitSquare(), uniformWeights(2))
	if err != nil {
		t.Fatalf("NewEstimator returned error: %v", err)
	}

	result, err := estimator.Apply([][]float64{{100, 100}})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if result.Inside[0] {
		t.Fatalf("far outlier flagged inside the AOA (DI=%.4f, threshold=%.4f)",
			result.DI[0], result.Threshold)
	}
	if result.DI[0] <= 10*result.Threshold {
		t.Fatalf("far outlier DI %.4f not far beyond threshold %.4f", result.DI[0], result.Threshold)
	}
	if result.InsideFraction != 0 {
		t.Fatalf("expected inside fraction 0, got %v", result.InsideFraction)
	}
}

func TestEstimatorTargetEqualsReference(t *testing.T) {
	t.Parallel()

	ref := [][]float64{
		{0.2, 3.1, -1.0},
		{0.4, 2.9, -0.5},
		{0.1, 3.3, -1.2},
		{0.5, 2.7, -0.8},
		{0.3, 3.0, -0.9},
	}
	estimator, err := NewEstimator(ref, uniformWeights(3))
	if err != nil {
		t.Fatalf("NewEstimator returned error: %v", err)
	}

	result, err := estimator.Apply(ref)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	for i, di := range result.DI {
		if di != 0 {
			t.Errorf("target %d equals a reference sample but has DI %v", i, di)
		}
		if !result.Inside[i] {
			t.Errorf("target %d equals a reference sample but is flagged outside", i)
		}
	}
	if result.InsideFraction != 1 {
		t.Fatalf("expected inside fraction 1, got %v", result.InsideFraction)
	}
}

func TestReferenceDIExcludesSelf(t *testing.T) {
	t.Parallel()

	ref := [][]float64{
		{0, 0},
		{1, 0},
		{0, 1},
		{5, 5},
	}
	estimator, err := NewEstimator(ref, uniformWeights(2))
	if err != nil {
		t.Fatalf("NewEstimator returned error: %v", err)
	}

	for i, di := range estimator.ReferenceDI() {
		if di <= 0 {
			t.Errorf("reference sample %d has DI %v; self-distance must never be its nearest-neighbor distance", i, di)
		}
	}
}

func TestEstimatorDeterministic(t *testing.T) {
	t.Parallel()

	ref := [][]float64{
		{1.1, 0.3, 7.2}, {0.9, 0.5, 6.8}, {1.3, 0.2, 7.5},
		{0.7, 0.6, 6.5}, {1.0, 0.4, 7.0}, {1.2, 0.35, 7.3},
	}
	target := [][]float64{
		{1.0, 0.4, 7.1}, {2.0, 0.1, 8.0}, {0.5, 0.9, 6.0}, {1.15, 0.33, 7.25},
	}
	weights := []float64{2.0, 0.5, 1.5}

	first, err := NewEstimator(ref, weights, WithWorkers(4))
	if err != nil {
		t.Fatalf("NewEstimator returned error: %v", err)
	}
	second, err := NewEstimator(ref, weights, WithWorkers(1))
	if err != nil {
		t.Fatalf("NewEstimator returned error: %v", err)
	}

	resultA, err := first.Apply(target)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	resultB, err := second.Apply(target)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if first.Threshold() != second.Threshold() {
		t.Fatalf("thresholds differ: %v vs %v", first.Threshold(), second.Threshold())
	}
	for i := range resultA.DI {
		if resultA.DI[i] != resultB.DI[i] {
			t.Errorf("DI %d differs across worker counts: %v vs %v", i, resultA.DI[i], resultB.DI[i])
		}
		if resultA.Inside[i] != resultB.Inside[i] {
			t.Errorf("flag %d differs across worker counts", i)
		}
	}
}

func TestEstimatorRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		ref     [][]float64
		weights []float64
	}{
		{"single reference sample", [][]float64{{1, 2}}, []float64{1, 1}},
		{"no predictors", [][]float64{{}, {}}, []float64{}},
		{"ragged reference", [][]float64{{1, 2}, {3}}, []float64{1, 1}},
		{"nan feature", [][]float64{{1, math.NaN()}, {3, 4}}, []float64{1, 1}},
		{"inf feature", [][]float64{{1, 2}, {math.Inf(1), 4}}, []float64{1, 1}},
		{"negative weight", [][]float64{{1, 2}, {3, 4}}, []float64{1, -1}},
		{"weight count mismatch", [][]float64{{1, 2}, {3, 4}}, []float64{1}},
	}

	for _, tc := range cases {
		if _, err := NewEstimator(tc.ref, tc.weights); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestEstimatorRejectsMismatchedTarget(t *testing.T) {
	t.Parallel()

	estimator, err := NewEstimator(unitSquare(), uniformWeights(2))
	if err != nil {
		t.Fatalf("NewEstimator returned error: %v", err)
	}

	if _, err := estimator.Apply([][]float64{{1, 2, 3}}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for wrong predictor count, got %v", err)
	}
	if _, err := estimator.Apply([][]float64{{1, math.NaN()}}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for NaN target, got %v", err)
	}
}

func TestEstimatorDegenerateReference(t *testing.T) {
	t.Parallel()

	// All rows identical: every predictor is constant, nothing usable remains.
	identical := [][]float64{{1, 2}, {1, 2}, {1, 2}}
	if _, err := NewEstimator(identical, uniformWeights(2)); !errors.Is(err, ErrDegenerateVariance) {
		t.Fatalf("expected ErrDegenerateVariance for identical rows, got %v", err)
	}

	// All weights zero: no predictor contributes.
	if _, err := NewEstimator(unitSquare(), []float64{0, 0}); !errors.Is(err, ErrDegenerateVariance) {
		t.Fatalf("expected ErrDegenerateVariance for all-zero weights, got %v", err)
	}
}

func TestZeroVariancePredictorExcluded(t *testing.T) {
	t.Parallel()

	ref := [][]float64{
		{0, 7, 0},
		{1, 7, 0},
		{0, 7, 1},
		{1, 7, 1},
	}
	estimator, err := NewEstimator(ref, uniformWeights(3))
	if err != nil {
		t.Fatalf("NewEstimator returned error: %v", err)
	}

	excluded := estimator.ExcludedPredictors()
	if len(excluded) != 1 || excluded[0] != 1 {
		t.Fatalf("expected predictor 1 excluded, got %v", excluded)
	}
	if w := estimator.Weights()[1]; w != 0 {
		t.Fatalf("excluded predictor kept weight %v", w)
	}

	// The constant column must not influence DIs: results match the
	// two-predictor setup.
	plain, err := NewEstimator(unitSquare(), uniformWeights(2))
	if err != nil {
		t.Fatalf("NewEstimator returned error: %v", err)
	}
	withConst, err := estimator.Apply([][]float64{{0.5, 7, 0.5}})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	without, err := plain.Apply([][]float64{{0.5, 0.5}})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if math.Abs(withConst.DI[0]-without.DI[0]) > 1e-12 {
		t.Fatalf("constant predictor changed DI: %v vs %v", withConst.DI[0], without.DI[0])
	}
}

func TestWeightRaisesPredictorContribution(t *testing.T) {
	t.Parallel()

	// Two targets offset from their nearest corner by the same amount, one
	// along each axis. Under uniform weights the square is symmetric so both
	// DIs match; raising the first predictor's weight must push the x-offset
	// target further out relative to the y-offset one.
	targets := [][]float64{
		{2, 0},
		{0, 2},
	}

	uniform, err := NewEstimator(unitSquare(), []float64{1, 1})
	if err != nil {
		t.Fatalf("NewEstimator returned error: %v", err)
	}
	weighted, err := NewEstimator(unitSquare(), []float64{2, 1})
	if err != nil {
		t.Fatalf("NewEstimator returned error: %v", err)
	}

	uniformResult, err := uniform.Apply(targets)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	weightedResult, err := weighted.Apply(targets)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if math.Abs(uniformResult.DI[0]-uniformResult.DI[1]) > 1e-12 {
		t.Fatalf("uniform weights should treat both offsets alike: %v vs %v",
			uniformResult.DI[0], uniformResult.DI[1])
	}
	if weightedResult.DI[0] <= weightedResult.DI[1] {
		t.Fatalf("doubling predictor 0's weight should raise its offset DI above the other axis: %v vs %v",
			weightedResult.DI[0], weightedResult.DI[1])
	}
}

func TestSpatialProxyPredictorsShrinkAOA(t *testing.T) {
	t.Parallel()

	// Two coordinate-proxy predictors constant within each reference region
	// but differing between regions, alongside two environmental predictors
	// whose values overlap everywhere. Targets come from a disjoint region.
	ref := [][]float64{
		// region A
		{0, 0, 1.0, 2.0},
		{0, 0, 1.2, 2.1},
		{0, 0, 0.9, 1.8},
		{0, 0, 1.1, 2.2},
		// region B
		{5, 5, 1.05, 2.05},
		{5, 5, 0.95, 1.9},
		{5, 5, 1.15, 2.15},
		{5, 5, 1.0, 2.1},
	}
	target := [][]float64{
		{20, 20, 1.0, 2.0},
		{20, 20, 1.1, 2.05},
		{20, 20, 0.95, 2.1},
		{20, 20, 1.05, 1.95},
	}

	withProxies, err := NewEstimator(ref, []float64{1, 1, 1, 1})
	if err != nil {
		t.Fatalf("NewEstimator returned error: %v", err)
	}
	withoutProxies, err := NewEstimator(ref, []float64{0, 0, 1, 1})
	if err != nil {
		t.Fatalf("NewEstimator returned error: %v", err)
	}

	proxied, err := withProxies.Apply(target)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	unproxied, err := withoutProxies.Apply(target)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if proxied.InsideFraction != 0 {
		t.Fatalf("disjoint region should be entirely outside the AOA when coordinate proxies are weighted, got %.2f inside",
			proxied.InsideFraction)
	}
	if unproxied.InsideFraction <= proxied.InsideFraction {
		t.Fatalf("removing the coordinate proxies must strictly increase the inside fraction: %.2f vs %.2f",
			unproxied.InsideFraction, proxied.InsideFraction)
	}
}

func TestAveragePairwiseDistance(t *testing.T) {
	t.Parallel()

	estimator, err := NewEstimator(unitSquare(), uniformWeights(2))
	if err != nil {
		t.Fatalf("NewEstimator returned error: %v", err)
	}
	if estimator.AverageReferenceDistance() <= 0 {
		t.Fatalf("average pairwise distance must be strictly positive for distinct rows, got %v",
			estimator.AverageReferenceDistance())
	}

	// Standardized unit square corners sit at (+-1, +-1): four side pairs of
	// length 2 and two diagonals of length 2*sqrt(2).
	expected := (4*2 + 2*2*math.Sqrt2) / 6
	if math.Abs(estimator.AverageReferenceDistance()-expected) > 1e-12 {
		t.Fatalf("average pairwise distance = %v, expected %v", estimator.AverageReferenceDistance(), expected)
	}
}

func TestEstimatorDoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	ref := unitSquare()
	target := [][]float64{{0.5, 0.5}}
	refCopy := [][]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	targetCopy := [][]float64{{0.5, 0.5}}

	estimator, err := NewEstimator(ref, uniformWeights(2))
	if err != nil {
		t.Fatalf("NewEstimator returned error: %v", err)
	}
	if _, err := estimator.Apply(target); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	for i := range ref {
		for j := range ref[i] {
			if ref[i][j] != refCopy[i][j] {
				t.Fatalf("reference matrix mutated at [%d][%d]", i, j)
			}
		}
	}
	for j := range target[0] {
		if target[0][j] != targetCopy[0][j] {
			t.Fatalf("target matrix mutated at [0][%d]", j)
		}
	}
}
