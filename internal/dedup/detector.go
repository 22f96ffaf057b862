// Package dedup flags probable duplicate reports by comparing new
// submissions against recent reports filed near the same spot.
package dedup

import (
	"context"
	"sort"
	"strings"

	"github.com/xrash/smetrics"

	apperrors "github.com/civicpulse/civicpulse/internal/errors"
	"github.com/civicpulse/civicpulse/internal/logger"
	"github.com/civicpulse/civicpulse/internal/models"
	"github.com/civicpulse/civicpulse/internal/store"
)

const (
	// Candidates are pulled from this radius around the new report.
	defaultRadiusMeters = 100
	// At most this many nearby candidates are compared.
	defaultMaxCandidates = 10
	// Similarity above this on title or description marks a duplicate.
	defaultSimilarityThreshold = 0.7

	jaroWinklerBoost  = 0.7
	jaroWinklerPrefix = 4
)

// Detector finds likely duplicates of a report among its neighbors
type Detector struct {
	store         store.Store
	radiusMeters  float64
	maxCandidates int
	threshold     float64
}

func New(s store.Store) *Detector {
	return NewWithConfig(s, defaultRadiusMeters, defaultMaxCandidates, defaultSimilarityThreshold)
}

// NewWithConfig creates a detector with operator-tuned search settings.
// Out-of-range values fall back to the defaults.
func NewWithConfig(s store.Store, radiusMeters float64, candidates int, threshold float64) *Detector {
	if radiusMeters <= 0 {
		radiusMeters = defaultRadiusMeters
	}
	if candidates <= 0 {
		candidates = defaultMaxCandidates
	}
	if threshold <= 0 || threshold >= 1 {
		threshold = defaultSimilarityThreshold
	}
	return &Detector{
		store:         s,
		radiusMeters:  radiusMeters,
		maxCandidates: candidates,
		threshold:     threshold,
	}
}

// FindDuplicates returns candidate duplicates of r, most similar first.
// Only active reports of the same type within the search radius are
// considered. A report with invalid coordinates matches nothing.
func (d *Detector) FindDuplicates(ctx context.Context, r *models.Report) []models.DuplicateMatch {
	if r == nil || !r.Location.Valid() {
		return nil
	}

	q := models.ReportQuery{
		ExcludeID: r.ID,
		Statuses:  models.ActiveStatuses(),
		Limit:     d.maxCandidates,
	}
	candidates, err := d.store.QueryNear(ctx, r.Location, d.radiusMeters, q)
	if err != nil {
		engineErr := apperrors.EngineError{Component: "dedup", Stage: "candidate query", Err: err}
		logger.WithContext(ctx).Warn("Duplicate candidate query failed", "error", engineErr, "report_id", r.ID)
		return nil
	}

	title := strings.ToLower(r.Title)
	desc := strings.ToLower(r.Description)

	var matches []models.DuplicateMatch
	for _, c := range candidates {
		if c.ReportType != r.ReportType {
			continue
		}

		titleSim := smetrics.JaroWinkler(title, strings.ToLower(c.Title), jaroWinklerBoost, jaroWinklerPrefix)
		descSim := smetrics.JaroWinkler(desc, strings.ToLower(c.Description), jaroWinklerBoost, jaroWinklerPrefix)

		if titleSim > d.threshold || descSim > d.threshold {
			sim := titleSim
			if descSim > sim {
				sim = descSim
			}
			reason := "Similar description"
			if titleSim > d.threshold {
				reason = "Similar title"
			}
			matches = append(matches, models.DuplicateMatch{
				ReportID:   c.ID,
				Similarity: sim,
				Reason:     reason,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	return matches
}
