//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/civicpulse/civicpulse/config"
	"github.com/civicpulse/civicpulse/internal/database"
	"github.com/civicpulse/civicpulse/internal/models"
	"github.com/civicpulse/civicpulse/internal/store"
)

func TestPostgresStore_WithContainer(t *testing.T) {
	if !containersAvailable() {
		t.Skip("container runtime not available; skipping container-based integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_DB": "civicpulse", "POSTGRES_USER": "civicpulse", "POSTGRES_PASSWORD": "password"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("start container: %v", err)
	}
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	host, err := pg.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := pg.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	dsn := "postgres://civicpulse:password@" + host + ":" + port.Port() + "/civicpulse?sslmode=disable"

	cfg := config.DatabaseConfig{URL: dsn, MaxConns: 5, MinConns: 1, MaxConnLifetime: time.Hour, MaxConnIdleTime: 30 * time.Minute}
	db, err := database.New(ctx, cfg)
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	defer db.Close(ctx)

	if err := db.Health(ctx); err != nil {
		t.Fatalf("db health: %v", err)
	}
	setupMinimalSchema(t, db)

	st := store.NewPostgresStore(db)

	reports := []models.Report{
		{
			Title:       "Pothole near the flyover",
			Description: "Deep pothole damaging vehicles",
			ReportType:  models.TypePothole,
			Status:      models.StatusPending,
			Location:    models.Location{Latitude: 17.40, Longitude: 78.48},
		},
		{
			Title:       "Garbage pile at the corner",
			Description: "Overflowing bin for a week",
			ReportType:  models.TypeGarbage,
			Status:      models.StatusCleared,
			Location:    models.Location{Latitude: 17.41, Longitude: 78.49},
		},
	}
	for i := range reports {
		if err := st.InsertReport(ctx, &reports[i]); err != nil {
			t.Fatalf("InsertReport %d: %v", i, err)
		}
	}

	pending, err := st.QueryReports(ctx, models.ReportQuery{Statuses: []models.ReportStatus{models.StatusPending}, Limit: 10})
	if err != nil {
		t.Fatalf("QueryReports: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != reports[0].ID {
		t.Fatalf("expected only the pending report, got %d", len(pending))
	}

	if err := st.MarkDuplicate(ctx, reports[1].ID, reports[0].ID); err != nil {
		t.Fatalf("MarkDuplicate: %v", err)
	}
	dup, err := st.GetReport(ctx, reports[1].ID)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if !dup.IsDuplicate || dup.DuplicateOf != reports[0].ID {
		t.Fatalf("duplicate flag not persisted: %+v", dup)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 2 || stats.Duplicates != 1 || stats.Cleared != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
