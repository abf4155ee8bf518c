package aoa

// Area of Applicability Estimator
//
// This package computes a per-sample dissimilarity index (DI) and an
// area-of-applicability (AOA) mask for a trained model's prediction domain.
//
// How It Works:
//
// 1. Fitting (reference set only):
//    - Per-predictor mean and standard deviation are computed from the
//      reference matrix and used to standardize every vector (z-scores).
//    - Predictor importances are normalized by their mean so the distance
//      scale stays comparable across differently-weighted models, then each
//      standardized column is multiplied by its normalized weight.
//    - The average pairwise weighted distance within the reference set (d̄)
//      is the normalization constant for all DIs.
//    - Each reference sample's leave-one-out nearest-neighbor distance,
//      divided by d̄, yields the reference DI distribution.
//    - The AOA threshold is the boxplot upper whisker of that distribution:
//      Q3 + factor × IQR (factor defaults to 1.5, configurable).
//
// 2. Application (target set):
//    - Each target sample's nearest-neighbor distance to the reference set,
//      divided by d̄, is its DI.
//    - A sample lies inside the AOA iff DI <= threshold.
//
// The nearest-neighbor search over targets is an independent map per sample;
// Apply partitions the target matrix into contiguous chunks processed by a
// configurable number of workers sharing only the immutable scaled reference.
// Output order follows input order regardless of worker count, and repeated
// calls with identical inputs produce identical results.

import (
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// DefaultThresholdFactor is the classical boxplot whisker factor.
const DefaultThresholdFactor = 1.5

type options struct {
	thresholdFactor float64
	workers         int
}

// Option configures an Estimator at construction time.
type Option func(*options)

// WithThresholdFactor overrides the whisker factor applied to the reference
// DI inter-quartile range when deriving the AOA threshold.
func WithThresholdFactor(factor float64) Option {
	return func(o *options) { o.thresholdFactor = factor }
}

// WithWorkers sets the number of goroutines used for the target
// nearest-neighbor search. Values below 1 fall back to the CPU count.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// Estimator holds the quantities fitted on a reference feature matrix. It is
// immutable after construction and safe for concurrent use.
type Estimator struct {
	scaler     *Scaler
	weights    []float64 // normalized, zeroed for degenerate predictors
	predictors int

	ref        [][]float64 // standardized and weight-scaled reference rows
	avgRefDist float64
	refDI      []float64
	threshold  float64
	excluded   []int

	thresholdFactor float64
	workers         int
}

// Result carries the per-target-sample outputs of Apply.
type Result struct {
	DI             []float64 `json:"di"`
	Inside         []bool    `json:"inside"`
	Threshold      float64   `json:"threshold"`
	InsideFraction float64   `json:"inside_fraction"`
}

// NewEstimator fits an estimator on the reference matrix and importance
// weights. The reference must have at least 2 rows sharing the same predictor
// order as later targets; weights must be non-negative with one entry per
// predictor. Predictors with zero variance in the reference set are excluded
// by forcing their weight to zero.
func NewEstimator(ref [][]float64, weights []float64, opts ...Option) (*Estimator, error) {
	o := options{thresholdFactor: DefaultThresholdFactor}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = runtime.NumCPU()
	}

	if len(ref) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 reference samples, got %d", ErrInvalidInput, len(ref))
	}
	predictors := len(ref[0])
	if predictors == 0 {
		return nil, fmt.Errorf("%w: reference samples have no predictors", ErrInvalidInput)
	}
	if err := checkMatrix(ref, predictors, "reference"); err != nil {
		return nil, err
	}
	if len(weights) != predictors {
		return nil, fmt.Errorf("%w: %d weights for %d predictors", ErrInvalidInput, len(weights), predictors)
	}
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, fmt.Errorf("%w: weight %d is %v", ErrInvalidInput, i, w)
		}
	}

	scaler, err := NewScalerFromMatrix(ref)
	if err != nil {
		return nil, err
	}

	effective := make([]float64, predictors)
	copy(effective, weights)
	var excluded []int
	for i, degenerate := range scaler.Degenerate {
		if degenerate && effective[i] != 0 {
			effective[i] = 0
			excluded = append(excluded, i)
		}
	}

	var weightSum float64
	nonzero := 0
	for _, w := range effective {
		if w > 0 {
			weightSum += w
			nonzero++
		}
	}
	if nonzero == 0 {
		return nil, fmt.Errorf("%w: no predictor with positive weight and non-constant reference values", ErrDegenerateVariance)
	}
	weightMean := weightSum / float64(nonzero)
	for i := range effective {
		effective[i] /= weightMean
	}

	scaledRef := make([][]float64, len(ref))
	for i, row := range ref {
		scaledRef[i] = applyWeights(scaler.Transform(row), effective)
	}

	avgDist := averagePairwiseDistance(scaledRef)
	if avgDist <= 0 {
		return nil, fmt.Errorf("%w: all reference samples are identical in weighted feature space", ErrDegenerateVariance)
	}

	refDI := make([]float64, len(scaledRef))
	for i, row := range scaledRef {
		refDI[i] = nearestNeighborDistance(row, scaledRef, i) / avgDist
	}

	threshold := whiskerThreshold(refDI, o.thresholdFactor)

	return &Estimator{
		scaler:          scaler,
		weights:         effective,
		predictors:      predictors,
		ref:             scaledRef,
		avgRefDist:      avgDist,
		refDI:           refDI,
		threshold:       threshold,
		excluded:        excluded,
		thresholdFactor: o.thresholdFactor,
		workers:         o.workers,
	}, nil
}

// Apply computes the DI and AOA flag for every target sample. The target
// matrix must share the reference's predictor order. The input is not mutated
// and the output order matches the input order.
func (e *Estimator) Apply(target [][]float64) (*Result, error) {
	if err := checkMatrix(target, e.predictors, "target"); err != nil {
		return nil, err
	}

	di := make([]float64, len(target))
	inside := make([]bool, len(target))

	workers := e.workers
	if workers > len(target) {
		workers = len(target)
	}
	if workers < 1 {
		workers = 1
	}
	chunk := (len(target) + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < len(target); start += chunk {
		end := start + chunk
		if end > len(target) {
			end = len(target)
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				scaled := applyWeights(e.scaler.Transform(target[i]), e.weights)
				di[i] = nearestNeighborDistance(scaled, e.ref, -1) / e.avgRefDist
				inside[i] = di[i] <= e.threshold
			}
		}(start, end)
	}
	wg.Wait()

	insideCount := 0
	for _, ok := range inside {
		if ok {
			insideCount++
		}
	}
	fraction := 0.0
	if len(inside) > 0 {
		fraction = float64(insideCount) / float64(len(inside))
	}

	return &Result{
		DI:             di,
		Inside:         inside,
		Threshold:      e.threshold,
		InsideFraction: fraction,
	}, nil
}

// Threshold returns the fitted AOA threshold (upper whisker of the reference
// DI distribution).
func (e *Estimator) Threshold() float64 { return e.threshold }

// AverageReferenceDistance returns d̄, the average pairwise weighted distance
// within the reference set.
func (e *Estimator) AverageReferenceDistance() float64 { return e.avgRefDist }

// ReferenceDI returns a copy of the leave-one-out reference DI distribution.
func (e *Estimator) ReferenceDI() []float64 {
	return append([]float64(nil), e.refDI...)
}

// ExcludedPredictors returns the indices of predictors dropped for having
// zero variance in the reference set.
func (e *Estimator) ExcludedPredictors() []int {
	return append([]int(nil), e.excluded...)
}

// Weights returns a copy of the normalized predictor weights actually used
// in distance computation.
func (e *Estimator) Weights() []float64 {
	return append([]float64(nil), e.weights...)
}

func checkMatrix(rows [][]float64, predictors int, name string) error {
	for i, row := range rows {
		if len(row) != predictors {
			return fmt.Errorf("%w: %s sample %d has %d predictors, expected %d",
				ErrInvalidInput, name, i, len(row), predictors)
		}
		for j, val := range row {
			if math.IsNaN(val) || math.IsInf(val, 0) {
				return fmt.Errorf("%w: %s sample %d predictor %d is %v",
					ErrInvalidInput, name, i, j, val)
			}
		}
	}
	return nil
}

func applyWeights(scaled []float64, weights []float64) []float64 {
	for i := range scaled {
		scaled[i] *= weights[i]
	}
	return scaled
}

func euclideanDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// nearestNeighborDistance returns the smallest distance from row to any
// reference row, skipping the given index (pass -1 to consider all rows).
// Skipping is how a reference sample avoids matching itself during the
// leave-one-out pass.
func nearestNeighborDistance(row []float64, ref [][]float64, skip int) float64 {
	best := math.Inf(1)
	for i, other := range ref {
		if i == skip {
			continue
		}
		if d := euclideanDistance(row, other); d < best {
			best = d
		}
	}
	return best
}

// averagePairwiseDistance computes the mean distance over all unordered row
// pairs.
func averagePairwiseDistance(rows [][]float64) float64 {
	var sum float64
	pairs := 0
	for i := 0; i < len(rows); i++ {
		for j := i + 1; j < len(rows); j++ {
			sum += euclideanDistance(rows[i], rows[j])
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return sum / float64(pairs)
}

// whiskerThreshold derives the AOA threshold from the reference DI
// distribution as Q3 + factor*IQR, the boxplot upper-whisker heuristic from
// the underlying methodology.
func whiskerThreshold(refDI []float64, factor float64) float64 {
	sorted := append([]float64(nil), refDI...)
	sort.Float64s(sorted)

	q1 := stat.Quantile(0.25, stat.Empirical, sorted, nil)
	q3 := stat.Quantile(0.75, stat.Empirical, sorted, nil)
	return q3 + factor*(q3-q1)
}
