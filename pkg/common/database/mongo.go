package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gentleomega/go-aibob/pkg/common/config"
	"github.com/gentleomega/go-aibob/pkg/common/logger"
)

// MongoClient wraps the connection to the suggestion document store.
type MongoClient struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// NewMongoClient connects and pings the configured MongoDB deployment.
func NewMongoClient(ctx context.Context, cfg *config.Config) (*MongoClient, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err = client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Log.Info("Connected to MongoDB")

	return &MongoClient{
		Client: client,
		DB:     client.Database(cfg.MongoDB),
	}, nil
}

// Collection returns a handle to the named collection.
func (m *MongoClient) Collection(name string) *mongo.Collection {
	return m.DB.Collection(name)
}

func (m *MongoClient) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := m.Client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	logger.Log.Info("MongoDB connection closed")
	return nil
}
