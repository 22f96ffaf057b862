// Package predictor estimates workforce and budget for incoming
// reports from closed-form weights fitted on resolved historical
// reports. Readers always see a complete model: training builds a new
// snapshot and swaps it in atomically.
package predictor

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	apperrors "github.com/civicpulse/civicpulse/internal/errors"
	"github.com/civicpulse/civicpulse/internal/logger"
	"github.com/civicpulse/civicpulse/internal/models"
	"github.com/civicpulse/civicpulse/internal/store"
)

const (
	// Fewer resolved samples than this leaves the default weights in place.
	minTrainingSamples = 10
	defaultSampleLimit = 1000

	// Predictions consider active reports within this radius.
	defaultNearbyRadiusMeters = 500

	baseWorkforce = 2.0
	baseBudget    = 5000.0

	defaultWorkforcePriority = 0.5
	defaultBudgetPriority    = 0.8

	minWorkforce = 1
	maxWorkforce = 20
	minBudget    = 1000
	maxBudget    = 500000
)

var workforceComplexity = map[models.ReportType]float64{
	models.TypeWaterLeak:   1.5,
	models.TypePothole:     1.2,
	models.TypeStreetLight: 1.0,
	models.TypeGarbage:     0.8,
	models.TypeOther:       1.0,
}

var budgetComplexity = map[models.ReportType]float64{
	models.TypeWaterLeak:   2.0,
	models.TypePothole:     1.5,
	models.TypeStreetLight: 1.2,
	models.TypeGarbage:     1.0,
	models.TypeOther:       1.0,
}

// Snapshot holds one immutable set of model weights. A snapshot is
// never mutated after publication.
type Snapshot struct {
	WorkforceByType   map[models.ReportType]float64
	BudgetByType      map[models.ReportType]float64
	WorkforcePriority float64
	BudgetPriority    float64
	Trained           bool
	Samples           int
	ReportTypes       int
	TrainedAt         time.Time
}

func defaultSnapshot() *Snapshot {
	return &Snapshot{
		WorkforceByType:   map[models.ReportType]float64{},
		BudgetByType:      map[models.ReportType]float64{},
		WorkforcePriority: defaultWorkforcePriority,
		BudgetPriority:    defaultBudgetPriority,
	}
}

// Predictor serves predictions from the current snapshot
type Predictor struct {
	store        store.Store
	sampleLimit  int
	nearbyRadius float64
	snap         atomic.Pointer[Snapshot]
}

func New(s store.Store) *Predictor {
	return NewWithConfig(s, defaultSampleLimit, defaultNearbyRadiusMeters)
}

// NewWithConfig creates a predictor with operator-tuned training and
// query settings. Out-of-range values fall back to the defaults.
func NewWithConfig(s store.Store, sampleLimit int, nearbyRadiusMeters float64) *Predictor {
	if sampleLimit <= 0 {
		sampleLimit = defaultSampleLimit
	}
	if nearbyRadiusMeters <= 0 {
		nearbyRadiusMeters = defaultNearbyRadiusMeters
	}
	p := &Predictor{store: s, sampleLimit: sampleLimit, nearbyRadius: nearbyRadiusMeters}
	p.snap.Store(defaultSnapshot())
	return p
}

// snapshot returns the current model; never nil
func (p *Predictor) snapshot() *Snapshot {
	return p.snap.Load()
}

// Train fits fresh weights from resolved reports that carry real
// assignments and publishes them. With too few samples the current
// snapshot stays as is and the result reports trained=false.
func (p *Predictor) Train(ctx context.Context) (*models.TrainResult, error) {
	samples, err := p.store.QueryReports(ctx, models.ReportQuery{
		Statuses:     []models.ReportStatus{models.StatusCleared},
		AssignedOnly: true,
		Limit:        p.sampleLimit,
	})
	if err != nil {
		return nil, apperrors.EngineError{Component: "predictor", Stage: "sample query", Err: err}
	}

	if len(samples) < minTrainingSamples {
		return &models.TrainResult{Trained: false, Samples: len(samples)}, nil
	}

	type typeAgg struct {
		workforce float64
		budget    float64
		n         int
	}
	byType := make(map[models.ReportType]*typeAgg)

	var prioritySum, priorityWorkforceSum, priorityBudgetSum float64
	for _, r := range samples {
		agg := byType[r.ReportType]
		if agg == nil {
			agg = &typeAgg{}
			byType[r.ReportType] = agg
		}
		agg.workforce += float64(r.AssignedWorkforce)
		agg.budget += r.AssignedBudget
		agg.n++

		priority := effectivePriority(r.PriorityScore)
		prioritySum += priority
		priorityWorkforceSum += priority * float64(r.AssignedWorkforce)
		priorityBudgetSum += priority * r.AssignedBudget
	}

	next := &Snapshot{
		WorkforceByType:   make(map[models.ReportType]float64, len(byType)),
		BudgetByType:      make(map[models.ReportType]float64, len(byType)),
		WorkforcePriority: defaultWorkforcePriority,
		BudgetPriority:    defaultBudgetPriority,
		Trained:           true,
		Samples:           len(samples),
		ReportTypes:       len(byType),
		TrainedAt:         time.Now().UTC(),
	}
	for rt, agg := range byType {
		next.WorkforceByType[rt] = agg.workforce / float64(agg.n)
		next.BudgetByType[rt] = agg.budget / float64(agg.n)
	}

	n := float64(len(samples))
	avgPriority := prioritySum / n
	if avgPriority > 0 {
		next.WorkforcePriority = (priorityWorkforceSum / n) / avgPriority
		next.BudgetPriority = (priorityBudgetSum / n) / avgPriority
	}

	p.snap.Store(next)

	return &models.TrainResult{
		Trained:     true,
		Samples:     len(samples),
		ReportTypes: len(byType),
	}, nil
}

// PredictWorkforce estimates the crew size for a report
func (p *Predictor) PredictWorkforce(r *models.Report, nearbyReports int) int {
	snap := p.snapshot()

	workforce := baseWorkforce
	if tw, ok := snap.WorkforceByType[r.ReportType]; ok && tw != 0 {
		workforce = tw
	}

	priority := effectivePriority(r.PriorityScore)
	workforce += (priority / 100) * snap.WorkforcePriority * 3

	workforce += math.Min(float64(nearbyReports)*0.5, 5)

	if mult, ok := workforceComplexity[r.ReportType]; ok {
		workforce *= mult
	}

	rounded := int(math.Round(workforce))
	if rounded < minWorkforce {
		rounded = minWorkforce
	}
	if rounded > maxWorkforce {
		rounded = maxWorkforce
	}
	return rounded
}

// PredictBudget estimates the budget for a report, rounded to the
// nearest hundred
func (p *Predictor) PredictBudget(r *models.Report, nearbyReports int) int {
	snap := p.snapshot()

	budget := baseBudget
	if tb, ok := snap.BudgetByType[r.ReportType]; ok && tb != 0 {
		budget = tb
	}

	priority := effectivePriority(r.PriorityScore)
	budget += (priority / 100) * snap.BudgetPriority * 10000

	budget += math.Min(float64(nearbyReports)*2000, 50000)

	if mult, ok := budgetComplexity[r.ReportType]; ok {
		budget *= mult
	}

	rounded := int(math.Round(budget/100)) * 100
	if rounded < minBudget {
		rounded = minBudget
	}
	if rounded > maxBudget {
		rounded = maxBudget
	}
	return rounded
}

// Confidence reports how much to trust predictions from the current
// snapshot
func (p *Predictor) Confidence() float64 {
	if !p.snapshot().Trained {
		return 0
	}
	return math.Min(0.95, 0.5+0.3+0.15)
}

// GetPredictions builds the full prediction payload for a report. A
// failing nearby count degrades to zero rather than failing the
// prediction.
func (p *Predictor) GetPredictions(ctx context.Context, r *models.Report) *models.Prediction {
	nearby := 0
	if r.Location.Valid() {
		count, err := p.store.CountNear(ctx, r.Location, p.nearbyRadius, r.ID)
		if err != nil {
			logger.WithContext(ctx).Warn("Nearby count failed for prediction", "error", err, "report_id", r.ID)
		} else {
			nearby = count
		}
	}

	snap := p.snapshot()
	return &models.Prediction{
		PredictedWorkforce: p.PredictWorkforce(r, nearby),
		PredictedBudget:    p.PredictBudget(r, nearby),
		Confidence:         p.Confidence(),
		Reasoning: models.PredictionReasoning{
			ReportType:    r.ReportType,
			PriorityScore: int(effectivePriority(r.PriorityScore)),
			NearbyReports: nearby,
			ModelTrained:  snap.Trained,
		},
	}
}

// ModelStats describes the current snapshot
type ModelStats struct {
	Trained     bool      `json:"trained"`
	Confidence  float64   `json:"confidence"`
	Samples     int       `json:"samples"`
	ReportTypes int       `json:"reportTypes"`
	TrainedAt   time.Time `json:"trainedAt,omitempty"`
}

// Stats returns statistics about the current snapshot
func (p *Predictor) Stats() ModelStats {
	snap := p.snapshot()
	return ModelStats{
		Trained:     snap.Trained,
		Confidence:  p.Confidence(),
		Samples:     snap.Samples,
		ReportTypes: snap.ReportTypes,
		TrainedAt:   snap.TrainedAt,
	}
}

// effectivePriority substitutes the neutral default for unscored
// reports
func effectivePriority(score int) float64 {
	if score == 0 {
		return 50
	}
	return float64(score)
}
