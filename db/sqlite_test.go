package db

import (
	"path/filepath"
	"testing"
	"time"

	"applicability/models"
)

func newTestClient(t *testing.T) *SQLiteClient {
	t.Helper()
	client, err := NewSQLiteClient(filepath.Join(t.TempDir(), "aoa.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func testRun(name string) *models.Run {
	return &models.Run{
		Timestamp:          time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
		Name:               name,
		Predictors:         []string{"red", "nir", "coord_x"},
		ExcludedPredictors: []int{2},
		ThresholdFactor:    1.5,
		Threshold:          0.42,
		AvgRefDistance:     1.17,
		ReferenceCount:     250,
		TargetCount:        10000,
		InsideFraction:     0.63,
		Metadata:           map[string]string{"stack": "stack.csv"},
	}
}

func TestStoreAndGetRuns(t *testing.T) {
	client := newTestClient(t)

	run := testRun("with_proxies")
	if err := client.StoreRun(run); err != nil {
		t.Fatalf("StoreRun returned error: %v", err)
	}
	if run.ID == 0 {
		t.Fatal("StoreRun did not assign an ID")
	}

	runs, err := client.GetAllRuns()
	if err != nil {
		t.Fatalf("GetAllRuns returned error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}

	got := runs[0]
	if got.Name != "with_proxies" {
		t.Errorf("name = %q", got.Name)
	}
	if got.Threshold != 0.42 || got.InsideFraction != 0.63 {
		t.Errorf("numeric fields not round-tripped: %+v", got)
	}
	if len(got.Predictors) != 3 || got.Predictors[2] != "coord_x" {
		t.Errorf("predictors not round-tripped: %v", got.Predictors)
	}
	if len(got.ExcludedPredictors) != 1 || got.ExcludedPredictors[0] != 2 {
		t.Errorf("excluded predictors not round-tripped: %v", got.ExcludedPredictors)
	}
	if got.Metadata["stack"] != "stack.csv" {
		t.Errorf("metadata not round-tripped: %v", got.Metadata)
	}
}

func TestGetRunsByName(t *testing.T) {
	client := newTestClient(t)

	for _, name := range []string{"with_proxies", "without_proxies", "with_proxies"} {
		if err := client.StoreRun(testRun(name)); err != nil {
			t.Fatalf("StoreRun returned error: %v", err)
		}
	}

	runs, err := client.GetRunsByName("with_proxies")
	if err != nil {
		t.Fatalf("GetRunsByName returned error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
}

func TestDeleteRunByID(t *testing.T) {
	client := newTestClient(t)

	run := testRun("doomed")
	if err := client.StoreRun(run); err != nil {
		t.Fatalf("StoreRun returned error: %v", err)
	}
	if err := client.DeleteRunByID(run.ID); err != nil {
		t.Fatalf("DeleteRunByID returned error: %v", err)
	}

	runs, err := client.GetAllRuns()
	if err != nil {
		t.Fatalf("GetAllRuns returned error: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected no runs after delete, got %d", len(runs))
	}
}
