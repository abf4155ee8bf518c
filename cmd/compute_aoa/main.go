package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mdobak/go-xerrors"

	"applicability/aoa"
	"applicability/config"
	"applicability/db"
	"applicability/models"
	"applicability/raster"
	"applicability/samples"
	"applicability/utils"
	"applicability/weights"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML run configuration")
	stackPath := flag.String("stack", "", "Predictor stack CSV (overrides config)")
	samplesPath := flag.String("samples", "", "Reference samples CSV (overrides config)")
	weightsPath := flag.String("weights", "", "Predictor importance JSON (empty for uniform weights)")
	outputDir := flag.String("out", "", "Output directory (overrides config)")
	runName := flag.String("name", "", "Run name used for stored records and output files")
	factor := flag.Float64("factor", -1, "Threshold whisker factor (overrides config)")
	workers := flag.Int("workers", 0, "Worker goroutines for the target search (0 = CPU count)")
	store := flag.Bool("store", false, "Record the run in the database")
	flag.Parse()

	_ = godotenv.Load()
	log.SetFlags(log.Ldate | log.Ltime)

	cfg := config.Defaults()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("ERROR: %v", err)
		}
		cfg = loaded
	}
	if *stackPath != "" {
		cfg.StackPath = *stackPath
	}
	if *samplesPath != "" {
		cfg.SamplesPath = *samplesPath
	}
	if *weightsPath != "" {
		cfg.WeightsPath = *weightsPath
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *runName != "" {
		cfg.RunName = *runName
	}
	if *factor >= 0 {
		cfg.ThresholdFactor = *factor
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *store {
		cfg.StoreRun = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	log.Println("=== Area of Applicability ===")
	log.Printf("Stack: %s", cfg.StackPath)
	log.Printf("Samples: %s", cfg.SamplesPath)

	grid, err := raster.ReadStackCSV(cfg.StackPath)
	if err != nil {
		log.Fatalf("ERROR: Failed to load predictor stack: %v", err)
	}
	log.Printf("Loaded %dx%d grid with %d bands", grid.Width, grid.Height, len(grid.Bands))

	refSet, err := samples.LoadCSV(cfg.SamplesPath)
	if err != nil {
		log.Fatalf("ERROR: Failed to load reference samples: %v", err)
	}
	if cfg.ExcludeRegion != nil {
		before := len(refSet.Samples)
		refSet = refSet.ExcludeBound(cfg.ExcludeRegion.Bound())
		log.Printf("Excluded held-out region: %d -> %d reference samples", before, len(refSet.Samples))
	}
	log.Printf("Loaded %d reference samples (%d classes)", len(refSet.Samples), len(refSet.ClassCounts()))

	if err := checkPredictors(grid.Bands, refSet.Predictors); err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	importance := weights.Uniform(refSet.Predictors)
	if cfg.WeightsPath != "" {
		importance, err = weights.LoadFromFile(cfg.WeightsPath)
		if err != nil {
			log.Fatalf("ERROR: %v", err)
		}
	}
	if len(cfg.ZeroWeight) > 0 {
		importance = importance.Without(cfg.ZeroWeight...)
		log.Printf("Zero-weighted predictors: %v", cfg.ZeroWeight)
	}
	weightVec, err := importance.Vector(refSet.Predictors)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	opts := []aoa.Option{aoa.WithThresholdFactor(cfg.ThresholdFactor)}
	if cfg.Workers > 0 {
		opts = append(opts, aoa.WithWorkers(cfg.Workers))
	}
	estimator, err := aoa.NewEstimator(refSet.Matrix(), weightVec, opts...)
	if err != nil {
		log.Fatalf("ERROR: Failed to fit estimator: %v", err)
	}

	analysis := estimator.AnalyzeReferenceDI()
	analysis.PrintReport(refSet.Predictors)
	for _, issue := range analysis.CheckIssues() {
		log.Printf("WARNING: %s", issue)
	}

	target, cells := grid.ToMatrix()
	log.Printf("Scoring %d target cells (%d no-data cells skipped)...",
		len(target), grid.Width*grid.Height-len(target))

	started := time.Now()
	result, err := estimator.Apply(target)
	if err != nil {
		log.Fatalf("ERROR: Failed to apply estimator: %v", err)
	}
	log.Printf("Done in %.2fs", time.Since(started).Seconds())

	if err := utils.CreateFolder(cfg.OutputDir); err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	diLayer := grid.NewLayer("di")
	if err := diLayer.SetCells(cells, result.DI); err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	aoaLayer := grid.NewLayer("aoa")
	if err := aoaLayer.SetFlags(cells, result.Inside); err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	diPath := filepath.Join(cfg.OutputDir, cfg.RunName+"_di.csv")
	aoaPath := filepath.Join(cfg.OutputDir, cfg.RunName+"_aoa.csv")
	if err := diLayer.WriteCSV(diPath); err != nil {
		log.Fatalf("ERROR: Failed to write DI layer: %v", err)
	}
	if err := aoaLayer.WriteCSV(aoaPath); err != nil {
		log.Fatalf("ERROR: Failed to write AOA layer: %v", err)
	}

	log.Println()
	log.Printf("Threshold: %.6f", result.Threshold)
	log.Printf("Inside AOA: %.1f%% of %d cells", result.InsideFraction*100, len(target))
	log.Printf("DI layer: %s", diPath)
	log.Printf("AOA layer: %s", aoaPath)

	if cfg.StoreRun {
		storeRun(cfg, refSet, estimator, result, len(target))
	}
}

func checkPredictors(bands, predictors []string) error {
	if len(bands) != len(predictors) {
		return fmt.Errorf("stack has %d bands but samples have %d predictors", len(bands), len(predictors))
	}
	for i := range bands {
		if bands[i] != predictors[i] {
			return fmt.Errorf("band %d is %q but sample predictor %d is %q; stack and samples must share predictor order",
				i, bands[i], i, predictors[i])
		}
	}
	return nil
}

func storeRun(cfg *config.Config, refSet *samples.Set, estimator *aoa.Estimator, result *aoa.Result, targetCount int) {
	client, err := db.NewDBClient()
	if err != nil {
		logger := utils.GetLogger()
		logger.ErrorContext(context.Background(), "failed to open run database", slog.Any("error", xerrors.New(err)))
		return
	}
	defer client.Close()

	run := &models.Run{
		Timestamp:          time.Now(),
		Name:               cfg.RunName,
		Predictors:         refSet.Predictors,
		ExcludedPredictors: estimator.ExcludedPredictors(),
		ThresholdFactor:    cfg.ThresholdFactor,
		Threshold:          result.Threshold,
		AvgRefDistance:     estimator.AverageReferenceDistance(),
		ReferenceCount:     len(refSet.Samples),
		TargetCount:        targetCount,
		InsideFraction:     result.InsideFraction,
		Metadata: map[string]string{
			"stack":   cfg.StackPath,
			"samples": cfg.SamplesPath,
			"weights": cfg.WeightsPath,
		},
	}
	if err := client.StoreRun(run); err != nil {
		logger := utils.GetLogger()
		logger.ErrorContext(context.Background(), "failed to store run", slog.Any("error", xerrors.New(err)))
		return
	}
	log.Printf("Run recorded (id %d)", run.ID)
}
