package aoa

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DIAnalysis summarizes the reference DI distribution a threshold was derived
// from, to help judge whether the fitted setup is usable before applying it
// to a prediction domain.
type DIAnalysis struct {
	Count              int
	Min                float64
	Max                float64
	Mean               float64
	Stddev             float64
	Q1                 float64
	Median             float64
	Q3                 float64
	Threshold          float64
	ThresholdFactor    float64
	ExcludedPredictors []int
}

// AnalyzeReferenceDI computes distribution statistics over the fitted
// reference DI values.
func (e *Estimator) AnalyzeReferenceDI() DIAnalysis {
	sorted := append([]float64(nil), e.refDI...)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)

	return DIAnalysis{
		Count:              len(sorted),
		Min:                floats.Min(sorted),
		Max:                floats.Max(sorted),
		Mean:               mean,
		Stddev:             std,
		Q1:                 stat.Quantile(0.25, stat.Empirical, sorted, nil),
		Median:             stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Q3:                 stat.Quantile(0.75, stat.Empirical, sorted, nil),
		Threshold:          e.threshold,
		ThresholdFactor:    e.thresholdFactor,
		ExcludedPredictors: e.ExcludedPredictors(),
	}
}

// PrintReport prints a formatted summary of the reference DI distribution.
// Predictor names, when provided, label the excluded-predictor lines.
func (a *DIAnalysis) PrintReport(predictorNames []string) {
	fmt.Println("\n=== Reference DI Analysis ===")
	fmt.Printf("%-28s %d\n", "Reference samples:", a.Count)
	fmt.Printf("%-28s %.6f / %.6f\n", "DI min / max:", a.Min, a.Max)
	fmt.Printf("%-28s %.6f (std %.6f)\n", "DI mean:", a.Mean, a.Stddev)
	fmt.Printf("%-28s %.6f / %.6f / %.6f\n", "DI quartiles (Q1/med/Q3):", a.Q1, a.Median, a.Q3)
	fmt.Printf("%-28s %.6f  (Q3 + %.2f x IQR)\n", "AOA threshold:", a.Threshold, a.ThresholdFactor)

	if len(a.ExcludedPredictors) > 0 {
		fmt.Printf("%-28s", "Excluded predictors:")
		for _, idx := range a.ExcludedPredictors {
			if idx < len(predictorNames) {
				fmt.Printf(" %s", predictorNames[idx])
			} else {
				fmt.Printf(" #%d", idx)
			}
		}
		fmt.Println()
	}
	fmt.Println()
}

// CheckIssues flags conditions that make the fitted threshold fragile.
func (a *DIAnalysis) CheckIssues() []string {
	issues := []string{}

	if a.Q3-a.Q1 == 0 {
		issues = append(issues, "reference DI inter-quartile range is zero; the threshold degenerates to Q3 and small target deviations flip the AOA flag")
	}
	if a.Threshold == 0 {
		issues = append(issues, "AOA threshold is zero; every target with any dissimilarity will fall outside the AOA")
	}
	if len(a.ExcludedPredictors) > 0 {
		issues = append(issues, fmt.Sprintf(
			"%d predictor(s) excluded for zero variance in the reference set; the model importance assigned to them is ignored",
			len(a.ExcludedPredictors)))
	}

	return issues
}
