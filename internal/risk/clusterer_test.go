package risk

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/civicpulse/civicpulse/internal/models"
	"github.com/civicpulse/civicpulse/internal/store"
)

func seed(t *testing.T, s store.Store, count int, rt models.ReportType, status models.ReportStatus, lat, lng float64) {
	t.Helper()
	for i := 0; i < count; i++ {
		r := models.Report{
			Title:      fmt.Sprintf("report %d", i),
			ReportType: rt,
			Status:     status,
			Location:   models.Location{Latitude: lat, Longitude: lng},
		}
		if err := s.InsertReport(context.Background(), &r); err != nil {
			t.Fatal(err)
		}
	}
}

func TestHighRiskAreas(t *testing.T) {
	ctx := context.Background()

	t.Run("Cells below three reports are discarded", func(t *testing.T) {
		s := store.NewInMemoryStore()
		seed(t, s, 2, models.TypePothole, models.StatusPending, 37.77, -122.42)

		areas := New(s).HighRiskAreas(ctx)
		if len(areas) != 0 {
			t.Fatalf("expected no risk areas, got %d", len(areas))
		}
	})

	t.Run("Score combines count and type diversity", func(t *testing.T) {
		s := store.NewInMemoryStore()
		seed(t, s, 2, models.TypePothole, models.StatusPending, 37.77, -122.42)
		seed(t, s, 2, models.TypeGarbage, models.StatusWorking, 37.77, -122.42)

		areas := New(s).HighRiskAreas(ctx)
		if len(areas) != 1 {
			t.Fatalf("expected 1 risk area, got %d", len(areas))
		}

		a := areas[0]
		if a.Count != 4 {
			t.Errorf("expected count 4, got %d", a.Count)
		}
		// 4 reports * 10 + 2 types * 5
		if a.RiskScore != 50 {
			t.Errorf("expected risk score 50, got %d", a.RiskScore)
		}
		if a.Location.Lat != 37.77 || a.Location.Lng != -122.42 {
			t.Errorf("unexpected cell location: %+v", a.Location)
		}
	})

	t.Run("Resolved reports do not count", func(t *testing.T) {
		s := store.NewInMemoryStore()
		seed(t, s, 2, models.TypePothole, models.StatusPending, 37.77, -122.42)
		seed(t, s, 5, models.TypePothole, models.StatusCleared, 37.77, -122.42)

		areas := New(s).HighRiskAreas(ctx)
		if len(areas) != 0 {
			t.Fatalf("expected no risk areas with only 2 active reports, got %d", len(areas))
		}
	})

	t.Run("Areas are sorted by score and capped at ten", func(t *testing.T) {
		s := store.NewInMemoryStore()
		// 12 distinct cells with increasing report counts
		for i := 0; i < 12; i++ {
			lat := 37.0 + float64(i)*0.1
			seed(t, s, 3+i, models.TypePothole, models.StatusPending, lat, -122.42)
		}

		areas := New(s).HighRiskAreas(ctx)
		if len(areas) != 10 {
			t.Fatalf("expected 10 risk areas, got %d", len(areas))
		}
		for i := 1; i < len(areas); i++ {
			if areas[i].RiskScore > areas[i-1].RiskScore {
				t.Fatalf("areas not sorted by score: %d before %d", areas[i-1].RiskScore, areas[i].RiskScore)
			}
		}
		// Densest cell first: 14 reports * 10 + 1 type * 5
		if areas[0].RiskScore != 145 {
			t.Errorf("expected top score 145, got %d", areas[0].RiskScore)
		}
	})

	t.Run("Invalid coordinates are skipped", func(t *testing.T) {
		s := store.NewInMemoryStore()
		seed(t, s, 3, models.TypePothole, models.StatusPending, 0, 0)

		areas := New(s).HighRiskAreas(ctx)
		if len(areas) != 0 {
			t.Fatalf("expected unset locations to be skipped, got %d areas", len(areas))
		}
	})

	t.Run("Store failure degrades to empty", func(t *testing.T) {
		areas := New(&failingStore{Store: store.NewInMemoryStore()}).HighRiskAreas(ctx)
		if len(areas) != 0 {
			t.Fatalf("expected empty result on store failure, got %d", len(areas))
		}
	})
}

type failingStore struct {
	store.Store
}

func (f *failingStore) QueryReports(ctx context.Context, q models.ReportQuery) ([]models.Report, error) {
	return nil, errors.New("query failed")
}
