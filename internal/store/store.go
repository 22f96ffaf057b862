package store

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/civicpulse/civicpulse/internal/models"
)

// Assignment carries a worker's resource assignment for a report. Nil
// fields are left untouched.
type Assignment struct {
	Workforce *int
	Budget    *float64
	Status    *models.ReportStatus
	WorkerID  string
}

// Store is the narrow persistence capability the engine consumes: point
// lookup, point-radius queries, bulk scans, and a handful of targeted
// mutations. The scoring and prediction logic never sees anything beyond
// this interface.
type Store interface {
	InsertReport(ctx context.Context, r *models.Report) error
	GetReport(ctx context.Context, id string) (*models.Report, error)
	QueryReports(ctx context.Context, q models.ReportQuery) ([]models.Report, error)

	// TopByPriority returns the highest-priority reports, capped at
	// limit when limit > 0.
	TopByPriority(ctx context.Context, limit int) ([]models.Report, error)

	// QueryNear returns reports within radiusMeters of center, nearest
	// first, filtered by q.
	QueryNear(ctx context.Context, center models.Location, radiusMeters float64, q models.ReportQuery) ([]models.Report, error)
	// CountNear counts reports within radiusMeters of center, excluding
	// excludeID when non-empty.
	CountNear(ctx context.Context, center models.Location, radiusMeters float64, excludeID string) (int, error)

	MarkDuplicate(ctx context.Context, id, duplicateOf string) error
	ToggleLike(ctx context.Context, id, userID string) (liked bool, likes int, err error)
	AddComment(ctx context.Context, id string, c models.Comment) error
	Assign(ctx context.Context, id string, a Assignment) error

	Stats(ctx context.Context) (*models.Stats, error)
	Health(ctx context.Context) error
}

// Database interface for dependency injection of the SQL backend
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (interface{}, error)
	QueryRow(ctx context.Context, sql string, args ...any) interface{}
	Health(ctx context.Context) error
	IsConfigured() bool
}

// New creates a store instance backed by whichever persistence layer is
// configured: Mongo first (the geospatial indexes there match the query
// shapes best), then Postgres, then in-memory.
func New(db Database, reports *mongo.Collection) Store {
	if reports != nil {
		return NewMongoStore(reports)
	}
	if db != nil && db.IsConfigured() {
		return NewPostgresStore(db)
	}
	return NewInMemoryStore()
}
