package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/civicpulse/civicpulse/internal/enrichment"
	middlewares "github.com/civicpulse/civicpulse/internal/middleware"
	"github.com/civicpulse/civicpulse/internal/models"
	"github.com/civicpulse/civicpulse/internal/predictor"
	"github.com/civicpulse/civicpulse/internal/ratelimit"
	"github.com/civicpulse/civicpulse/internal/risk"
	"github.com/civicpulse/civicpulse/internal/store"
)

// Handler handles HTTP requests for the API
type Handler struct {
	store       store.Store
	enricher    *enrichment.Service
	predictor   *predictor.Predictor
	risk        *risk.Clusterer
	limits      *ratelimit.Manager
	version     string
	buildTime   string
	gitCommit   string
	startTime   time.Time
	adminSecret string
}

// NewHandler creates a new API handler
func NewHandler(s store.Store, enricher *enrichment.Service, pred *predictor.Predictor, clusterer *risk.Clusterer, limits *ratelimit.Manager, adminSecret, version, buildTime, gitCommit string) *Handler {
	return &Handler{
		store:       s,
		enricher:    enricher,
		predictor:   pred,
		risk:        clusterer,
		limits:      limits,
		version:     version,
		buildTime:   buildTime,
		gitCommit:   gitCommit,
		startTime:   time.Now(),
		adminSecret: adminSecret,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {
		// Health check endpoints
		r.Get("/health", h.healthHandler)
		r.Get("/health/ready", h.readinessHandler)
		r.Get("/health/live", h.livenessHandler)

		// Report endpoints
		r.Post("/reports", h.createReportHandler)
		r.Get("/reports", h.getReportsHandler)
		r.Get("/reports/nearby", h.getNearbyReportsHandler)
		r.Get("/reports/{id}", h.getReportHandler)
		r.Post("/reports/{id}/like", h.likeReportHandler)
		r.Post("/reports/{id}/comments", h.addCommentHandler)
		r.Put("/reports/{id}/assignment", h.assignReportHandler)
		r.Get("/reports/{id}/predictions", h.getPredictionsHandler)

		// Insight endpoints
		r.Get("/insights/risk-areas", h.getRiskAreasHandler)
		r.Get("/model", h.getModelHandler)

		// System info
		r.Get("/version", h.versionHandler)
	})

	// Admin routes (protected by shared secret middleware)
	r.Route("/v1/admin", func(r chi.Router) {
		r.With(middlewares.AdminSecret(h.adminSecret)).Group(func(r chi.Router) {
			r.Get("/stats", h.getStatsHandler)
			r.Get("/insights", h.getInsightsHandler)
			r.Post("/model/train", h.trainModelHandler)
		})
	})

	// Root health check
	r.Get("/health", h.healthHandler)
}

// healthHandler provides basic health check
func (h *Handler) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"version":   h.version,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// readinessHandler checks if the application is ready to serve traffic
func (h *Handler) readinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]string{
		"store": "ok",
	}

	statusCode := http.StatusOK

	// Check store health
	if err := h.store.Health(ctx); err != nil {
		checks["store"] = "error: " + err.Error()
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	}

	h.writeJSONResponse(w, statusCode, response)
}

// livenessHandler checks if the application is alive
func (h *Handler) livenessHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// versionHandler returns version information
func (h *Handler) versionHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"version":    h.version,
		"build_time": h.buildTime,
		"git_commit": h.gitCommit,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// parseReportQuery parses query parameters into ReportQuery
func (h *Handler) parseReportQuery(r *http.Request) (models.ReportQuery, error) {
	q := models.ReportQuery{}

	// Parse limit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return q, fmt.Errorf("invalid limit: %s", limitStr)
		}
		if limit < 0 || limit > 1000 {
			return q, fmt.Errorf("limit must be between 0 and 1000")
		}
		q.Limit = limit
	}

	// Parse offset
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return q, fmt.Errorf("invalid offset: %s", offsetStr)
		}
		if offset < 0 {
			return q, fmt.Errorf("offset must be non-negative")
		}
		q.Offset = offset
	}

	// Parse time filters
	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		since, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			return q, fmt.Errorf("invalid since format: %s", sinceStr)
		}
		q.Since = since
	}

	if untilStr := r.URL.Query().Get("until"); untilStr != "" {
		until, err := time.Parse(time.RFC3339, untilStr)
		if err != nil {
			return q, fmt.Errorf("invalid until format: %s", untilStr)
		}
		q.Until = until
	}

	// Parse array filters
	for _, s := range r.URL.Query()["status"] {
		status := models.ReportStatus(s)
		if !status.Valid() {
			return q, fmt.Errorf("invalid status: %s", s)
		}
		q.Statuses = append(q.Statuses, status)
	}
	for _, t := range r.URL.Query()["type"] {
		rt := models.ReportType(t)
		if !rt.Valid() {
			return q, fmt.Errorf("invalid type: %s", t)
		}
		q.Types = append(q.Types, rt)
	}

	return q, nil
}

// writeJSONResponse writes a JSON response
func (h *Handler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeErrorResponse writes a standardized error response
func (h *Handler) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   message,
		Timestamp: time.Now().UTC(),
		RequestID: r.Header.Get("X-Request-ID"),
	}

	h.writeJSONResponse(w, statusCode, response)
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}
