package database

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/civicpulse/civicpulse/config"
	"github.com/civicpulse/civicpulse/internal/logger"
)

// Mongo represents a MongoDB connection
type Mongo struct {
	client  *mongo.Client
	reports *mongo.Collection
}

// NewMongo connects to MongoDB if a URI is configured. Returns a nil
// connection when MONGO_URI is unset so the caller can fall back to
// another store.
func NewMongo(ctx context.Context, cfg config.MongoConfig) (*Mongo, error) {
	if cfg.URI == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	start := time.Now()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	m := &Mongo{
		client:  client,
		reports: client.Database(cfg.Database).Collection(cfg.Collection),
	}

	if err := m.ensureIndexes(ctx); err != nil {
		logger.Warn("Mongo index creation warnings", "error", err)
	}

	logger.Info("Mongo connection established",
		"uri", redactURI(cfg.URI),
		"database", cfg.Database,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return m, nil
}

// Reports returns the reports collection
func (m *Mongo) Reports() *mongo.Collection {
	if m == nil {
		return nil
	}
	return m.reports
}

// Close disconnects from MongoDB
func (m *Mongo) Close(ctx context.Context) {
	if m == nil || m.client == nil {
		return
	}
	if err := m.client.Disconnect(ctx); err != nil {
		logger.Error("Mongo disconnect failed", "error", err)
		return
	}
	logger.Info("Mongo connection closed")
}

// ensureIndexes creates the indexes the query paths depend on. The
// geospatial queries require a 2dsphere index on location.
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var errs []string
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "report_type", Value: 1}}},
	}
	for _, idx := range indexes {
		if _, err := m.reports.Indexes().CreateOne(ctx, idx); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// redactURI hides credentials for logging
func redactURI(raw string) string {
	if raw == "" || !strings.Contains(raw, "://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.UserPassword("****", "****")
	return u.String()
}
