package main

import (
	"flag"
	"log"

	"applicability/aoa"
	"applicability/samples"
	"applicability/weights"
)

// threshold_report fits an estimator on reference samples and prints the
// reference DI distribution the AOA threshold is derived from, without
// scoring any target. Useful for judging a setup before a full run.
func main() {
	samplesPath := flag.String("samples", "samples.csv", "Reference samples CSV")
	weightsPath := flag.String("weights", "", "Predictor importance JSON (empty for uniform weights)")
	factor := flag.Float64("factor", aoa.DefaultThresholdFactor, "Threshold whisker factor")
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime)

	refSet, err := samples.LoadCSV(*samplesPath)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	log.Printf("Loaded %d reference samples, %d predictors",
		len(refSet.Samples), len(refSet.Predictors))

	importance := weights.Uniform(refSet.Predictors)
	if *weightsPath != "" {
		importance, err = weights.LoadFromFile(*weightsPath)
		if err != nil {
			log.Fatalf("ERROR: %v", err)
		}
	}
	weightVec, err := importance.Vector(refSet.Predictors)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	estimator, err := aoa.NewEstimator(refSet.Matrix(), weightVec, aoa.WithThresholdFactor(*factor))
	if err != nil {
		log.Fatalf("ERROR: Failed to fit estimator: %v", err)
	}

	analysis := estimator.AnalyzeReferenceDI()
	analysis.PrintReport(refSet.Predictors)

	issues := analysis.CheckIssues()
	if len(issues) == 0 {
		log.Println("No issues found.")
		return
	}
	for _, issue := range issues {
		log.Printf("WARNING: %s", issue)
	}
}
