package dedup

import (
	"context"
	"errors"
	"testing"

	"github.com/civicpulse/civicpulse/internal/models"
	"github.com/civicpulse/civicpulse/internal/store"
)

func seedReport(t *testing.T, s store.Store, r models.Report) models.Report {
	t.Helper()
	if err := s.InsertReport(context.Background(), &r); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestFindDuplicates(t *testing.T) {
	ctx := context.Background()
	loc := models.Location{Longitude: -122.4194, Latitude: 37.7749}

	t.Run("Similar title same type is flagged", func(t *testing.T) {
		s := store.NewInMemoryStore()
		existing := seedReport(t, s, models.Report{
			Title:       "Large pothole on Mission Street",
			Description: "Deep hole near the crosswalk",
			ReportType:  models.TypePothole,
			Status:      models.StatusPending,
			Location:    loc,
		})

		d := New(s)
		newReport := models.Report{
			ID:          "new-report",
			Title:       "Large pothole on Mission Street",
			Description: "Completely different text about the problem",
			ReportType:  models.TypePothole,
			Location:    loc,
		}

		matches := d.FindDuplicates(ctx, &newReport)
		if len(matches) != 1 {
			t.Fatalf("expected 1 match, got %d", len(matches))
		}
		if matches[0].ReportID != existing.ID {
			t.Errorf("expected match on %s, got %s", existing.ID, matches[0].ReportID)
		}
		if matches[0].Reason != "Similar title" {
			t.Errorf("expected reason 'Similar title', got %q", matches[0].Reason)
		}
		if matches[0].Similarity <= 0.7 {
			t.Errorf("expected similarity above 0.7, got %v", matches[0].Similarity)
		}
	})

	t.Run("Type mismatch is never a duplicate", func(t *testing.T) {
		s := store.NewInMemoryStore()
		seedReport(t, s, models.Report{
			Title:      "Large pothole on Mission Street",
			ReportType: models.TypeGarbage,
			Status:     models.StatusPending,
			Location:   loc,
		})

		d := New(s)
		newReport := models.Report{
			ID:         "new-report",
			Title:      "Large pothole on Mission Street",
			ReportType: models.TypePothole,
			Location:   loc,
		}

		if matches := d.FindDuplicates(ctx, &newReport); len(matches) != 0 {
			t.Fatalf("expected no matches across types, got %d", len(matches))
		}
	})

	t.Run("Resolved reports are not candidates", func(t *testing.T) {
		s := store.NewInMemoryStore()
		seedReport(t, s, models.Report{
			Title:      "Large pothole on Mission Street",
			ReportType: models.TypePothole,
			Status:     models.StatusCleared,
			Location:   loc,
		})

		d := New(s)
		newReport := models.Report{
			ID:         "new-report",
			Title:      "Large pothole on Mission Street",
			ReportType: models.TypePothole,
			Location:   loc,
		}

		if matches := d.FindDuplicates(ctx, &newReport); len(matches) != 0 {
			t.Fatalf("expected no matches against cleared reports, got %d", len(matches))
		}
	})

	t.Run("Distant reports are out of range", func(t *testing.T) {
		s := store.NewInMemoryStore()
		seedReport(t, s, models.Report{
			Title:      "Large pothole on Mission Street",
			ReportType: models.TypePothole,
			Status:     models.StatusPending,
			// roughly 1.1km east
			Location: models.Location{Longitude: -122.4069, Latitude: 37.7749},
		})

		d := New(s)
		newReport := models.Report{
			ID:         "new-report",
			Title:      "Large pothole on Mission Street",
			ReportType: models.TypePothole,
			Location:   loc,
		}

		if matches := d.FindDuplicates(ctx, &newReport); len(matches) != 0 {
			t.Fatalf("expected no matches beyond the radius, got %d", len(matches))
		}
	})

	t.Run("Invalid coordinates match nothing", func(t *testing.T) {
		s := store.NewInMemoryStore()
		seedReport(t, s, models.Report{
			Title:      "Large pothole on Mission Street",
			ReportType: models.TypePothole,
			Status:     models.StatusPending,
			Location:   loc,
		})

		d := New(s)
		newReport := models.Report{
			ID:         "new-report",
			Title:      "Large pothole on Mission Street",
			ReportType: models.TypePothole,
			Location:   models.Location{Longitude: 999, Latitude: 37.7749},
		}

		if matches := d.FindDuplicates(ctx, &newReport); len(matches) != 0 {
			t.Fatalf("expected no matches for invalid coordinates, got %d", len(matches))
		}
	})

	t.Run("Unrelated text is not flagged", func(t *testing.T) {
		s := store.NewInMemoryStore()
		seedReport(t, s, models.Report{
			Title:       "Overflowing bin behind the market",
			Description: "Bags piling up since Monday",
			ReportType:  models.TypePothole,
			Status:      models.StatusPending,
			Location:    loc,
		})

		d := New(s)
		newReport := models.Report{
			ID:          "new-report",
			Title:       "Cracked asphalt near the school",
			Description: "Surface is breaking apart at the turn lane",
			ReportType:  models.TypePothole,
			Location:    loc,
		}

		if matches := d.FindDuplicates(ctx, &newReport); len(matches) != 0 {
			t.Fatalf("expected no matches for unrelated text, got %d", len(matches))
		}
	})

	t.Run("Store failure degrades to no matches", func(t *testing.T) {
		d := New(&failingStore{Store: store.NewInMemoryStore()})
		newReport := models.Report{
			ID:         "new-report",
			Title:      "Large pothole on Mission Street",
			ReportType: models.TypePothole,
			Location:   loc,
		}

		if matches := d.FindDuplicates(ctx, &newReport); matches != nil {
			t.Fatalf("expected nil matches on store failure, got %v", matches)
		}
	})
}

func TestDetectorConfig(t *testing.T) {
	ctx := context.Background()
	loc := models.Location{Longitude: -122.4194, Latitude: 37.7749}

	t.Run("Raised threshold suppresses moderate similarity", func(t *testing.T) {
		s := store.NewInMemoryStore()
		seedReport(t, s, models.Report{
			Title:      "Large pothole on Mission Street",
			ReportType: models.TypePothole,
			Status:     models.StatusPending,
			Location:   loc,
		})
		newReport := models.Report{
			ID:         "new-report",
			Title:      "Big pothole near Mission Street",
			ReportType: models.TypePothole,
			Location:   loc,
		}

		// Similarity here sits around 0.85: a match at the default
		// threshold, suppressed at 0.9.
		if matches := New(s).FindDuplicates(ctx, &newReport); len(matches) != 1 {
			t.Fatalf("expected a match at the default threshold, got %d", len(matches))
		}
		strict := NewWithConfig(s, defaultRadiusMeters, defaultMaxCandidates, 0.9)
		if matches := strict.FindDuplicates(ctx, &newReport); len(matches) != 0 {
			t.Fatalf("expected no matches at threshold 0.9, got %d", len(matches))
		}
	})

	t.Run("Widened radius picks up distant reports", func(t *testing.T) {
		s := store.NewInMemoryStore()
		seedReport(t, s, models.Report{
			Title:      "Large pothole on Mission Street",
			ReportType: models.TypePothole,
			Status:     models.StatusPending,
			// roughly 1.1km east
			Location: models.Location{Longitude: -122.4069, Latitude: 37.7749},
		})
		newReport := models.Report{
			ID:         "new-report",
			Title:      "Large pothole on Mission Street",
			ReportType: models.TypePothole,
			Location:   loc,
		}

		if matches := New(s).FindDuplicates(ctx, &newReport); len(matches) != 0 {
			t.Fatalf("expected no matches at the default radius, got %d", len(matches))
		}
		wide := NewWithConfig(s, 2000, defaultMaxCandidates, defaultSimilarityThreshold)
		if matches := wide.FindDuplicates(ctx, &newReport); len(matches) != 1 {
			t.Fatalf("expected a match at 2km, got %d", len(matches))
		}
	})

	t.Run("Candidate cap limits the comparison set", func(t *testing.T) {
		s := store.NewInMemoryStore()
		// Nearest candidate is the wrong type; the matching one is
		// slightly farther out and only reachable with cap > 1.
		seedReport(t, s, models.Report{
			Title:      "Large pothole on Mission Street",
			ReportType: models.TypeGarbage,
			Status:     models.StatusPending,
			Location:   models.Location{Longitude: -122.41941, Latitude: 37.7749},
		})
		seedReport(t, s, models.Report{
			Title:      "Large pothole on Mission Street",
			ReportType: models.TypePothole,
			Status:     models.StatusPending,
			Location:   models.Location{Longitude: -122.4199, Latitude: 37.7749},
		})
		newReport := models.Report{
			ID:         "new-report",
			Title:      "Large pothole on Mission Street",
			ReportType: models.TypePothole,
			Location:   loc,
		}

		if matches := New(s).FindDuplicates(ctx, &newReport); len(matches) != 1 {
			t.Fatalf("expected a match with the default cap, got %d", len(matches))
		}
		capped := NewWithConfig(s, defaultRadiusMeters, 1, defaultSimilarityThreshold)
		if matches := capped.FindDuplicates(ctx, &newReport); len(matches) != 0 {
			t.Fatalf("expected no matches with cap 1, got %d", len(matches))
		}
	})

	t.Run("Out of range settings fall back to defaults", func(t *testing.T) {
		d := NewWithConfig(store.NewInMemoryStore(), -1, 0, 1.5)
		if d.radiusMeters != defaultRadiusMeters || d.maxCandidates != defaultMaxCandidates || d.threshold != defaultSimilarityThreshold {
			t.Fatalf("expected defaults, got %v/%v/%v", d.radiusMeters, d.maxCandidates, d.threshold)
		}
	})
}

type failingStore struct {
	store.Store
}

func (f *failingStore) QueryNear(ctx context.Context, center models.Location, radiusMeters float64, q models.ReportQuery) ([]models.Report, error) {
	return nil, errors.New("query failed")
}
