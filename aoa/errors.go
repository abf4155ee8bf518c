package aoa

import "errors"

var (
	// ErrInvalidInput marks structurally unusable inputs: too few reference
	// samples, zero predictors, shape mismatches, negative weights, or
	// non-finite feature values.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDegenerateVariance marks a reference set that carries no usable
	// spread: every predictor is constant (or zero-weighted), so the average
	// pairwise distance is zero and no dissimilarity index can be normalized.
	ErrDegenerateVariance = errors.New("degenerate variance")
)
