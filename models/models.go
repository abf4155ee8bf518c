package models

import "time"

// Run records one fitted-and-applied AOA computation so that setups can be
// compared later (e.g. the same scene with and without the coordinate-proxy
// predictors).
type Run struct {
	ID                 int64             `json:"id" bson:"id,omitempty"`
	Timestamp          time.Time         `json:"timestamp" bson:"timestamp"`
	Name               string            `json:"name" bson:"name"`
	Predictors         []string          `json:"predictors" bson:"predictors"`
	ExcludedPredictors []int             `json:"excluded_predictors,omitempty" bson:"excluded_predictors,omitempty"`
	ThresholdFactor    float64           `json:"threshold_factor" bson:"threshold_factor"`
	Threshold          float64           `json:"threshold" bson:"threshold"`
	AvgRefDistance     float64           `json:"avg_ref_distance" bson:"avg_ref_distance"`
	ReferenceCount     int               `json:"reference_count" bson:"reference_count"`
	TargetCount        int               `json:"target_count" bson:"target_count"`
	InsideFraction     float64           `json:"inside_fraction" bson:"inside_fraction"`
	Metadata           map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
}
