package db

import (
	"context"
	"fmt"
	"time"

	"applicability/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const runsCollection = "runs"

type MongoClient struct {
	client *mongo.Client
	dbName string
}

func NewMongoClient(uri, dbName string) (*MongoClient, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error connecting to MongoDB: %s", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("error pinging MongoDB: %s", err)
	}

	return &MongoClient{client: client, dbName: dbName}, nil
}

func (c *MongoClient) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}

func (c *MongoClient) collection() *mongo.Collection {
	return c.client.Database(c.dbName).Collection(runsCollection)
}

func (c *MongoClient) StoreRun(run *models.Run) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if run.ID == 0 {
		run.ID = time.Now().UnixNano()
	}
	if _, err := c.collection().InsertOne(ctx, run); err != nil {
		return fmt.Errorf("error storing run: %s", err)
	}
	return nil
}

func (c *MongoClient) GetAllRuns() ([]models.Run, error) {
	return c.findRuns(bson.M{})
}

func (c *MongoClient) GetRunsByName(name string) ([]models.Run, error) {
	return c.findRuns(bson.M{"name": name})
}

func (c *MongoClient) findRuns(filter bson.M) ([]models.Run, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.M{"timestamp": -1})
	cursor, err := c.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error querying runs: %s", err)
	}
	defer cursor.Close(ctx)

	var runs []models.Run
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, fmt.Errorf("error decoding runs: %s", err)
	}
	return runs, nil
}

func (c *MongoClient) DeleteRunByID(id int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := c.collection().DeleteOne(ctx, bson.M{"id": id}); err != nil {
		return fmt.Errorf("failed to delete run: %v", err)
	}
	return nil
}
