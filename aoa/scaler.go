package aoa

import (
	"fmt"
	"math"
)

const degenerateStddev = 1e-10

// Scaler standardizes feature vectors using z-score normalization with
// parameters fitted on the reference matrix only. Each predictor is
// transformed to mean=0 and std=1 in reference space; target vectors are
// transformed with the same parameters so that reference and target live in
// one coordinate system without leaking target statistics into the fit.
type Scaler struct {
	Mean   []float64 `json:"mean"`
	Stddev []float64 `json:"stddev"`

	// Degenerate flags predictors whose standard deviation in the fit set is
	// (near) zero. Their stddev is pinned to 1 to keep Transform defined; the
	// estimator assigns them zero weight so they never contribute to distances.
	Degenerate []bool `json:"degenerate"`
}

// NewScalerFromMatrix computes scaling parameters from the reference rows.
func NewScalerFromMatrix(rows [][]float64) (*Scaler, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no reference samples", ErrInvalidInput)
	}

	predictorCount := len(rows[0])
	if predictorCount == 0 {
		return nil, fmt.Errorf("%w: reference samples have no predictors", ErrInvalidInput)
	}

	mean := make([]float64, predictorCount)
	for _, row := range rows {
		if len(row) != predictorCount {
			return nil, fmt.Errorf("%w: inconsistent predictor dimensions", ErrInvalidInput)
		}
		for i, val := range row {
			mean[i] += val
		}
	}
	for i := range mean {
		mean[i] /= float64(len(rows))
	}

	stddev := make([]float64, predictorCount)
	for _, row := range rows {
		for i, val := range row {
			diff := val - mean[i]
			stddev[i] += diff * diff
		}
	}

	degenerate := make([]bool, predictorCount)
	for i := range stddev {
		stddev[i] = math.Sqrt(stddev[i] / float64(len(rows)))
		if stddev[i] < degenerateStddev {
			stddev[i] = 1.0
			degenerate[i] = true
		}
	}

	return &Scaler{
		Mean:       mean,
		Stddev:     stddev,
		Degenerate: degenerate,
	}, nil
}

// Transform applies z-score standardization to a single feature vector.
// The input is not mutated.
func (s *Scaler) Transform(features []float64) []float64 {
	scaled := make([]float64, len(features))
	for i, val := range features {
		scaled[i] = (val - s.Mean[i]) / s.Stddev[i]
	}
	return scaled
}
