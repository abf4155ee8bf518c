// Package samples loads the reference (training) observations the estimator
// is fitted on: one georeferenced row per field observation with its class
// label and predictor values.
package samples

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/paulmach/orb"
)

// Sample is a single reference observation.
type Sample struct {
	Point    orb.Point
	Class    string
	Features []float64
}

// Set is an ordered collection of reference observations sharing one
// predictor order.
type Set struct {
	Predictors []string
	Samples    []Sample
}

// LoadCSV reads reference observations from a CSV file with an
// "x,y,class,pred1,pred2,..." header.
func LoadCSV(path string) (*Set, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open samples file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read samples file %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("samples file %s has no observations", path)
	}

	header := rows[0]
	if len(header) < 4 || header[0] != "x" || header[1] != "y" || header[2] != "class" {
		return nil, fmt.Errorf("samples file %s: header must start with x,y,class followed by predictor names", path)
	}
	predictors := header[3:]

	set := &Set{Predictors: predictors}
	for i, rec := range rows[1:] {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("samples file %s: row %d has %d columns, expected %d", path, i+2, len(rec), len(header))
		}
		x, errX := strconv.ParseFloat(rec[0], 64)
		y, errY := strconv.ParseFloat(rec[1], 64)
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("samples file %s: row %d: bad coordinates", path, i+2)
		}
		features := make([]float64, len(predictors))
		for j, raw := range rec[3:] {
			val, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("samples file %s: row %d: bad value %q for predictor %s",
					path, i+2, raw, predictors[j])
			}
			features[j] = val
		}
		set.Samples = append(set.Samples, Sample{
			Point:    orb.Point{x, y},
			Class:    rec[2],
			Features: features,
		})
	}
	return set, nil
}

// Matrix flattens the set to a reference feature matrix in observation order.
func (s *Set) Matrix() [][]float64 {
	matrix := make([][]float64, len(s.Samples))
	for i, sample := range s.Samples {
		matrix[i] = sample.Features
	}
	return matrix
}

// ExcludeBound returns a copy of the set without the observations falling
// inside the bound. Used to drop a held-out validation region before
// fitting, so the estimator never sees it.
func (s *Set) ExcludeBound(bound orb.Bound) *Set {
	out := &Set{Predictors: s.Predictors}
	for _, sample := range s.Samples {
		if bound.Contains(sample.Point) {
			continue
		}
		out.Samples = append(out.Samples, sample)
	}
	return out
}

// ClassCounts tallies observations per class label.
func (s *Set) ClassCounts() map[string]int {
	counts := make(map[string]int)
	for _, sample := range s.Samples {
		counts[sample.Class]++
	}
	return counts
}
