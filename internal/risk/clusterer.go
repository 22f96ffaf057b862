// Package risk aggregates active reports into coarse geographic
// cells and ranks the densest ones.
package risk

import (
	"context"
	"sort"

	apperrors "github.com/civicpulse/civicpulse/internal/errors"
	"github.com/civicpulse/civicpulse/internal/geo"
	"github.com/civicpulse/civicpulse/internal/logger"
	"github.com/civicpulse/civicpulse/internal/models"
	"github.com/civicpulse/civicpulse/internal/store"
)

const (
	// Cells with fewer active reports than this are not risk areas.
	minCellReports = 3
	// Only the highest scoring cells are reported.
	maxAreas = 10

	countWeight = 10
	typeWeight  = 5
)

// Clusterer buckets active reports into grid cells and scores them
type Clusterer struct {
	store store.Store
}

func New(s store.Store) *Clusterer {
	return &Clusterer{store: s}
}

// HighRiskAreas returns up to ten grid cells with at least three
// active reports, highest risk score first. Reports with invalid
// coordinates are skipped. Store failures degrade to an empty result.
func (c *Clusterer) HighRiskAreas(ctx context.Context) []models.RiskArea {
	reports, err := c.store.QueryReports(ctx, models.ReportQuery{
		Statuses: models.ActiveStatuses(),
	})
	if err != nil {
		engineErr := apperrors.EngineError{Component: "risk", Stage: "active scan", Err: err}
		logger.WithContext(ctx).Warn("Risk area query failed", "error", engineErr)
		return []models.RiskArea{}
	}

	type cellAgg struct {
		count int
		types map[models.ReportType]int
	}

	cells := make(map[models.GridCell]*cellAgg)
	var order []models.GridCell
	for _, r := range reports {
		if !r.Location.Valid() {
			continue
		}
		key := geo.GridCell(r.Location)
		agg := cells[key]
		if agg == nil {
			agg = &cellAgg{types: make(map[models.ReportType]int)}
			cells[key] = agg
			order = append(order, key)
		}
		agg.count++
		agg.types[r.ReportType]++
	}

	areas := make([]models.RiskArea, 0, len(cells))
	for _, key := range order {
		agg := cells[key]
		if agg.count < minCellReports {
			continue
		}
		areas = append(areas, models.RiskArea{
			Location:  key,
			Count:     agg.count,
			Types:     agg.types,
			RiskScore: agg.count*countWeight + len(agg.types)*typeWeight,
		})
	}

	sort.SliceStable(areas, func(i, j int) bool {
		return areas[i].RiskScore > areas[j].RiskScore
	})

	if len(areas) > maxAreas {
		areas = areas[:maxAreas]
	}
	return areas
}
