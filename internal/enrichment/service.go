// Package enrichment runs the scoring pipeline over incoming reports
// and schedules the post-persist duplicate pass.
package enrichment

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/civicpulse/civicpulse/internal/dedup"
	apperrors "github.com/civicpulse/civicpulse/internal/errors"
	"github.com/civicpulse/civicpulse/internal/logger"
	"github.com/civicpulse/civicpulse/internal/metrics"
	"github.com/civicpulse/civicpulse/internal/models"
	"github.com/civicpulse/civicpulse/internal/scoring"
	"github.com/civicpulse/civicpulse/internal/store"
)

const defaultNearbyRadiusMeters = 500

// Config tunes the enrichment pipeline. Zero values fall back to the
// engine defaults.
type Config struct {
	Concurrency           int64
	QueriesPerSecond      float64
	NearbyRadiusMeters    float64
	DuplicateRadiusMeters float64
	DuplicateCandidates   int
	DuplicateThreshold    float64
}

// Service enriches reports with scores, tags, sentiment and
// classification, and flags duplicates after persistence
type Service struct {
	store        store.Store
	scorer       *scoring.Scorer
	detector     *dedup.Detector
	nearbyRadius float64

	// bounds concurrent duplicate passes so a submission burst cannot
	// swamp the store with geo queries
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

func New(s store.Store, concurrency int64, queriesPerSecond float64) *Service {
	return NewWithConfig(s, Config{Concurrency: concurrency, QueriesPerSecond: queriesPerSecond})
}

func NewWithConfig(s store.Store, cfg Config) *Service {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.NearbyRadiusMeters <= 0 {
		cfg.NearbyRadiusMeters = defaultNearbyRadiusMeters
	}
	return &Service{
		store:        s,
		scorer:       scoring.New(),
		detector:     dedup.NewWithConfig(s, cfg.DuplicateRadiusMeters, cfg.DuplicateCandidates, cfg.DuplicateThreshold),
		nearbyRadius: cfg.NearbyRadiusMeters,
		sem:          semaphore.NewWeighted(cfg.Concurrency),
		limiter:      rate.NewLimiter(rate.Limit(cfg.QueriesPerSecond), int(cfg.Concurrency)),
	}
}

// Enrich computes the derived fields for a report. Every step degrades
// independently: a failed nearby lookup scores with zero density, and
// the returned enrichment is always usable.
func (e *Service) Enrich(ctx context.Context, r *models.Report) models.Enrichment {
	nearby := 0
	if r.Location.Valid() {
		count, err := e.store.CountNear(ctx, r.Location, e.nearbyRadius, r.ID)
		if err != nil {
			engineErr := apperrors.EngineError{Component: "enrichment", Stage: "nearby count", Err: err}
			logger.WithContext(ctx).Warn("Nearby count failed during enrichment", "error", engineErr, "report_id", r.ID)
		} else {
			nearby = count
		}
	}

	enrichment := models.Enrichment{
		PriorityScore:     e.scorer.PriorityScore(*r, scoring.ScoreContext{NearbyReports: nearby}),
		AITags:            scoring.GenerateTags(*r),
		SentimentAnalysis: scoring.AnalyzeSentiment(r.Title + " " + r.Description),
		AIClassification:  scoring.Classify(*r),
	}

	metrics.RecordReportEnriched(string(r.ReportType), "success")
	return enrichment
}

// Apply copies an enrichment onto a report
func Apply(r *models.Report, en models.Enrichment) {
	r.PriorityScore = en.PriorityScore
	r.AITags = en.AITags
	r.SentimentAnalysis = en.SentimentAnalysis
	r.AIClassification = en.AIClassification
}

// ScheduleDuplicatePass runs duplicate detection for a freshly stored
// report in the background. Best effort: failures are logged, never
// surfaced to the submitter.
func (e *Service) ScheduleDuplicatePass(r models.Report) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := e.sem.Acquire(ctx, 1); err != nil {
			logger.Warn("Duplicate pass skipped, engine saturated", "report_id", r.ID)
			return
		}
		defer e.sem.Release(1)

		if err := e.limiter.Wait(ctx); err != nil {
			logger.Warn("Duplicate pass skipped, rate limit wait cancelled", "report_id", r.ID)
			return
		}

		e.RunDuplicatePass(ctx, &r)
	}()
}

// RunDuplicatePass marks the report a duplicate of its best match, if
// any. Only the new report is modified.
func (e *Service) RunDuplicatePass(ctx context.Context, r *models.Report) []models.DuplicateMatch {
	matches := e.detector.FindDuplicates(ctx, r)
	if len(matches) == 0 {
		return nil
	}

	if err := e.store.MarkDuplicate(ctx, r.ID, matches[0].ReportID); err != nil {
		logger.WithContext(ctx).Warn("Failed to mark duplicate", "error", err, "report_id", r.ID)
		return matches
	}

	logger.WithContext(ctx).Info("Report marked as duplicate",
		"report_id", r.ID,
		"duplicate_of", matches[0].ReportID,
		"similarity", matches[0].Similarity,
	)
	return matches
}
