package db

import (
	"fmt"

	"applicability/models"
	"applicability/utils"
)

// DBClient stores and retrieves AOA run records.
type DBClient interface {
	Close() error
	StoreRun(run *models.Run) error
	GetAllRuns() ([]models.Run, error)
	GetRunsByName(name string) ([]models.Run, error)
	DeleteRunByID(id int64) error
}

// NewDBClient builds a client from the environment: DB_TYPE selects the
// backend ("sqlite" by default, "mongo" for MongoDB).
func NewDBClient() (DBClient, error) {
	dbType := utils.GetEnv("DB_TYPE", "sqlite")

	switch dbType {
	case "sqlite":
		dbPath := utils.GetEnv("SQLITE_DB_PATH", "storage/aoa.db")
		return NewSQLiteClient(dbPath)
	case "mongo":
		uri := utils.GetEnv("MONGO_URI", "mongodb://localhost:27017")
		dbName := utils.GetEnv("MONGO_DB", "applicability")
		return NewMongoClient(uri, dbName)
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q (expected sqlite or mongo)", dbType)
	}
}
