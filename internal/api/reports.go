package api

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/civicpulse/civicpulse/internal/enrichment"
	"github.com/civicpulse/civicpulse/internal/logger"
	"github.com/civicpulse/civicpulse/internal/models"
	"github.com/civicpulse/civicpulse/internal/store"
	"github.com/civicpulse/civicpulse/pkg/utils"
)

const maxBodyBytes = 1 << 20

// createReportRequest is the submission payload
type createReportRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	ReportType  string          `json:"report_type"`
	Location    models.Location `json:"location"`
	AddressText string          `json:"address_text"`
	MediaURLs   []string        `json:"media_urls"`
	SubmittedBy string          `json:"submitted_by"`
}

func (req *createReportRequest) validate() error {
	if strings.TrimSpace(req.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(req.Description) == "" {
		return fmt.Errorf("description is required")
	}
	if req.ReportType != "" && !models.ReportType(req.ReportType).Valid() {
		return fmt.Errorf("invalid report_type: %s", req.ReportType)
	}
	return nil
}

// createReportHandler handles POST /reports. The report is enriched
// synchronously so the response already carries its score, tags,
// sentiment and classification; duplicate detection runs after the
// insert in the background.
func (h *Handler) createReportHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createReportRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.validate(); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	reportType := models.ReportType(req.ReportType)
	if req.ReportType == "" {
		reportType = models.TypeOther
	}

	report := models.Report{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		ReportType:  reportType,
		Status:      models.StatusPending,
		Location:    req.Location,
		AddressText: req.AddressText,
		MediaURLs:   req.MediaURLs,
		SubmittedBy: req.SubmittedBy,
	}

	enrichment.Apply(&report, h.enricher.Enrich(ctx, &report))

	if err := h.store.InsertReport(ctx, &report); err != nil {
		logger.WithContext(ctx).Error("Failed to insert report", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.enricher.ScheduleDuplicatePass(report)
	h.countSubmission(r)

	h.writeJSONResponse(w, http.StatusCreated, report)
}

// countSubmission records the daily submission counter, best effort
func (h *Handler) countSubmission(r *http.Request) {
	if h.limits == nil {
		return
	}
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	if err := h.limits.IncSubmissions(r.Context(), utils.HashString(ip), time.Now().UTC()); err != nil {
		logger.Warn("Failed to count submission", "error", err)
	}
}

// getReportsHandler handles GET /reports
func (h *Handler) getReportsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q, err := h.parseReportQuery(r)
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	reports, err := h.store.QueryReports(ctx, q)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to query reports", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	response := map[string]interface{}{
		"data":      reports,
		"count":     len(reports),
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Cache-Control", "public, max-age=60")
	h.writeJSONResponse(w, http.StatusOK, response)
}

// getNearbyReportsHandler handles GET /reports/nearby
func (h *Handler) getNearbyReportsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "lat is required")
		return
	}
	lng, err := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "lng is required")
		return
	}
	center := models.Location{Latitude: lat, Longitude: lng}
	if !center.Valid() {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "invalid coordinates")
		return
	}

	radius := 1000.0
	if radiusStr := r.URL.Query().Get("radius"); radiusStr != "" {
		radius, err = strconv.ParseFloat(radiusStr, 64)
		if err != nil || radius <= 0 || radius > 50000 {
			h.writeErrorResponse(w, r, http.StatusBadRequest, "radius must be between 0 and 50000 meters")
			return
		}
	}

	q, err := h.parseReportQuery(r)
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	reports, err := h.store.QueryNear(ctx, center, radius, q)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to query nearby reports", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	response := map[string]interface{}{
		"data":      reports,
		"count":     len(reports),
		"center":    center,
		"radius":    radius,
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Cache-Control", "public, max-age=60")
	h.writeJSONResponse(w, http.StatusOK, response)
}

// getReportHandler handles GET /reports/{id}
func (h *Handler) getReportHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportID := chi.URLParam(r, "id")

	if reportID == "" {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "report ID is required")
		return
	}

	report, err := h.store.GetReport(ctx, reportID)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to get report", "error", err, "report_id", reportID)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	if report == nil {
		h.writeErrorResponse(w, r, http.StatusNotFound, "Report not found")
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=300")
	h.writeJSONResponse(w, http.StatusOK, report)
}

// likeReportHandler handles POST /reports/{id}/like. Toggles: a second
// like from the same user removes the first.
func (h *Handler) likeReportHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportID := chi.URLParam(r, "id")

	var req struct {
		UserID string `json:"user_id"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.UserID) == "" {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "user_id is required")
		return
	}

	liked, likes, err := h.store.ToggleLike(ctx, reportID, req.UserID)
	if err != nil {
		if isNotFound(err) {
			h.writeErrorResponse(w, r, http.StatusNotFound, "Report not found")
			return
		}
		logger.WithContext(ctx).Error("Failed to toggle like", "error", err, "report_id", reportID)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"liked": liked,
		"likes": likes,
	})
}

// addCommentHandler handles POST /reports/{id}/comments
func (h *Handler) addCommentHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportID := chi.URLParam(r, "id")

	var req struct {
		UserID string `json:"user_id"`
		Text   string `json:"text"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "text is required")
		return
	}

	comment := models.Comment{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Text:      strings.TrimSpace(req.Text),
		CreatedAt: time.Now().UTC(),
	}

	if err := h.store.AddComment(ctx, reportID, comment); err != nil {
		if isNotFound(err) {
			h.writeErrorResponse(w, r, http.StatusNotFound, "Report not found")
			return
		}
		logger.WithContext(ctx).Error("Failed to add comment", "error", err, "report_id", reportID)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, comment)
}

// assignmentRequest is the worker/budget assignment payload
type assignmentRequest struct {
	Workforce *int     `json:"workforce"`
	Budget    *float64 `json:"budget"`
	Status    *string  `json:"status"`
	WorkerID  string   `json:"worker_id"`
}

// assignReportHandler handles PUT /reports/{id}/assignment
func (h *Handler) assignReportHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportID := chi.URLParam(r, "id")

	var req assignmentRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Workforce == nil && req.Budget == nil && req.Status == nil && req.WorkerID == "" {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "nothing to assign")
		return
	}
	if req.Workforce != nil && *req.Workforce < 0 {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "workforce must be non-negative")
		return
	}
	if req.Budget != nil && *req.Budget < 0 {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "budget must be non-negative")
		return
	}

	assignment := store.Assignment{
		Workforce: req.Workforce,
		Budget:    req.Budget,
		WorkerID:  req.WorkerID,
	}
	if req.Status != nil {
		status := models.ReportStatus(*req.Status)
		if !status.Valid() {
			h.writeErrorResponse(w, r, http.StatusBadRequest, "invalid status: "+*req.Status)
			return
		}
		assignment.Status = &status
	}

	if err := h.store.Assign(ctx, reportID, assignment); err != nil {
		if isNotFound(err) {
			h.writeErrorResponse(w, r, http.StatusNotFound, "Report not found")
			return
		}
		logger.WithContext(ctx).Error("Failed to assign report", "error", err, "report_id", reportID)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	report, err := h.store.GetReport(ctx, reportID)
	if err != nil || report == nil {
		h.writeJSONResponse(w, http.StatusOK, map[string]string{"status": "assigned"})
		return
	}
	h.writeJSONResponse(w, http.StatusOK, report)
}

// getPredictionsHandler handles GET /reports/{id}/predictions
func (h *Handler) getPredictionsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportID := chi.URLParam(r, "id")

	report, err := h.store.GetReport(ctx, reportID)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to get report", "error", err, "report_id", reportID)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	if report == nil {
		h.writeErrorResponse(w, r, http.StatusNotFound, "Report not found")
		return
	}

	prediction := h.predictor.GetPredictions(ctx, report)
	h.writeJSONResponse(w, http.StatusOK, prediction)
}
