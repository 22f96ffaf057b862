package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	apperrors "github.com/civicpulse/civicpulse/internal/errors"
	"github.com/civicpulse/civicpulse/internal/logger"
	"github.com/civicpulse/civicpulse/internal/models"
	"github.com/civicpulse/civicpulse/internal/scoring"
)

// topPriorityLimit caps the high-priority list in the insights payload
const topPriorityLimit = 10

// getRiskAreasHandler handles GET /insights/risk-areas
func (h *Handler) getRiskAreasHandler(w http.ResponseWriter, r *http.Request) {
	areas := h.risk.HighRiskAreas(r.Context())

	response := map[string]interface{}{
		"data":      areas,
		"count":     len(areas),
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Cache-Control", "public, max-age=60")
	h.writeJSONResponse(w, http.StatusOK, response)
}

// getModelHandler handles GET /model
func (h *Handler) getModelHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, h.predictor.Stats())
}

// getStatsHandler handles GET /admin/stats
func (h *Handler) getStatsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.store.Stats(ctx)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to compute stats", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, stats)
}

// getInsightsHandler handles GET /admin/insights. One payload with
// everything the operations dashboard shows.
func (h *Handler) getInsightsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.store.Stats(ctx)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to compute stats", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	topReports, err := h.store.TopByPriority(ctx, topPriorityLimit)
	if err != nil {
		logger.WithContext(ctx).Warn("Top priority query failed", "error", err)
		topReports = []models.Report{}
	}

	response := map[string]interface{}{
		"stats":                 stats,
		"risk_areas":            h.risk.HighRiskAreas(ctx),
		"high_priority_reports": topReports,
		"comment_sentiment":     h.commentSentiment(ctx),
		"model":                 h.predictor.Stats(),
		"timestamp":             time.Now().UTC(),
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// commentSentiment tallies the sentiment of every comment on record.
// A failed scan degrades to an all-zero tally.
func (h *Handler) commentSentiment(ctx context.Context) map[string]int {
	tally := map[string]int{"positive": 0, "negative": 0, "neutral": 0}

	reports, err := h.store.QueryReports(ctx, models.ReportQuery{})
	if err != nil {
		logger.WithContext(ctx).Warn("Comment sentiment scan failed", "error", err)
		return tally
	}
	for _, r := range reports {
		for _, c := range r.Comments {
			tally[scoring.AnalyzeSentiment(c.Text).Sentiment]++
		}
	}
	return tally
}

// trainModelHandler handles POST /admin/model/train
func (h *Handler) trainModelHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.predictor.Train(ctx)
	if err != nil {
		logger.WithContext(ctx).Error("Model training failed", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Training failed")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, result)
}

// isNotFound reports whether err is a missing-record error
func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}
