package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"applicability/models"
	"applicability/utils"

	_ "github.com/mattn/go-sqlite3" // SQLite driver registration
)

type SQLiteClient struct {
	db *sql.DB
}

func NewSQLiteClient(dataSourceName string) (*SQLiteClient, error) {
	// Extract the file path before query parameters
	dbPath := dataSourceName
	if idx := strings.Index(dataSourceName, "?"); idx != -1 {
		dbPath = dataSourceName[:idx]
	}

	dbDir := filepath.Dir(dbPath)
	if dbDir != "." && dbDir != "" {
		if err := utils.CreateFolder(dbDir); err != nil {
			return nil, fmt.Errorf("error creating database directory: %s", err)
		}
	}

	// Add busy timeout param to DSN (milliseconds)
	if !strings.Contains(dataSourceName, "_busy_timeout") {
		if strings.Contains(dataSourceName, "?") {
			dataSourceName += "&_busy_timeout=5000"
		} else {
			dataSourceName += "?_busy_timeout=5000"
		}
	}

	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("error connecting to SQLite: %s", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("error creating tables: %s", err)
	}

	return &SQLiteClient{db: db}, nil
}

func createTables(db *sql.DB) error {
	createRunsTable := `
    CREATE TABLE IF NOT EXISTS runs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        name TEXT NOT NULL,
        predictors TEXT NOT NULL,
        excluded_predictors TEXT,
        threshold_factor REAL NOT NULL,
        threshold REAL NOT NULL,
        avg_ref_distance REAL NOT NULL,
        reference_count INTEGER NOT NULL,
        target_count INTEGER NOT NULL,
        inside_fraction REAL NOT NULL,
        metadata TEXT
    );
    CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);
    CREATE INDEX IF NOT EXISTS idx_runs_name ON runs(name);
    `

	if _, err := db.Exec(createRunsTable); err != nil {
		return fmt.Errorf("error creating runs table: %s", err)
	}
	return nil
}

func (c *SQLiteClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// StoreRun persists a run record. Slice and map fields are stored as JSON.
func (c *SQLiteClient) StoreRun(run *models.Run) error {
	predictorsJSON, err := json.Marshal(run.Predictors)
	if err != nil {
		return fmt.Errorf("error marshaling predictors: %s", err)
	}

	var excludedJSON *string
	if len(run.ExcludedPredictors) > 0 {
		data, err := json.Marshal(run.ExcludedPredictors)
		if err != nil {
			return fmt.Errorf("error marshaling excluded predictors: %s", err)
		}
		s := string(data)
		excludedJSON = &s
	}

	var metadataJSON *string
	if run.Metadata != nil {
		data, err := json.Marshal(run.Metadata)
		if err != nil {
			return fmt.Errorf("error marshaling metadata: %s", err)
		}
		s := string(data)
		metadataJSON = &s
	}

	result, err := c.db.Exec(`
		INSERT INTO runs (
			timestamp, name, predictors, excluded_predictors,
			threshold_factor, threshold, avg_ref_distance,
			reference_count, target_count, inside_fraction, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Timestamp,
		run.Name,
		string(predictorsJSON),
		excludedJSON,
		run.ThresholdFactor,
		run.Threshold,
		run.AvgRefDistance,
		run.ReferenceCount,
		run.TargetCount,
		run.InsideFraction,
		metadataJSON,
	)
	if err != nil {
		return fmt.Errorf("error storing run: %s", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		run.ID = id
	}
	return nil
}

func (c *SQLiteClient) GetAllRuns() ([]models.Run, error) {
	return c.queryRuns(`
		SELECT id, timestamp, name, predictors, excluded_predictors,
		       threshold_factor, threshold, avg_ref_distance,
		       reference_count, target_count, inside_fraction, metadata
		FROM runs
		ORDER BY timestamp DESC
	`)
}

func (c *SQLiteClient) GetRunsByName(name string) ([]models.Run, error) {
	return c.queryRuns(`
		SELECT id, timestamp, name, predictors, excluded_predictors,
		       threshold_factor, threshold, avg_ref_distance,
		       reference_count, target_count, inside_fraction, metadata
		FROM runs
		WHERE name = ?
		ORDER BY timestamp DESC
	`, name)
}

func (c *SQLiteClient) queryRuns(query string, args ...interface{}) ([]models.Run, error) {
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying runs: %s", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		var run models.Run
		var predictorsJSON string
		var excludedJSON *string
		var metadataJSON *string

		err := rows.Scan(
			&run.ID,
			&run.Timestamp,
			&run.Name,
			&predictorsJSON,
			&excludedJSON,
			&run.ThresholdFactor,
			&run.Threshold,
			&run.AvgRefDistance,
			&run.ReferenceCount,
			&run.TargetCount,
			&run.InsideFraction,
			&metadataJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning run: %s", err)
		}

		if err := json.Unmarshal([]byte(predictorsJSON), &run.Predictors); err != nil {
			return nil, fmt.Errorf("error unmarshaling predictors: %s", err)
		}
		if excludedJSON != nil {
			if err := json.Unmarshal([]byte(*excludedJSON), &run.ExcludedPredictors); err != nil {
				return nil, fmt.Errorf("error unmarshaling excluded predictors: %s", err)
			}
		}
		if metadataJSON != nil {
			if err := json.Unmarshal([]byte(*metadataJSON), &run.Metadata); err != nil {
				return nil, fmt.Errorf("error unmarshaling metadata: %s", err)
			}
		}

		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (c *SQLiteClient) DeleteRunByID(id int64) error {
	_, err := c.db.Exec("DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %v", err)
	}
	return nil
}
