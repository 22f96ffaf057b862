package smoke

import (
	"net/http/httptest"
	"testing"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/civicpulse/civicpulse/internal/api"
	"github.com/civicpulse/civicpulse/internal/enrichment"
	"github.com/civicpulse/civicpulse/internal/predictor"
	"github.com/civicpulse/civicpulse/internal/risk"
	"github.com/civicpulse/civicpulse/internal/store"
)

func TestHealthAndReportsSmoke(t *testing.T) {
	st := store.NewInMemoryStore()
	h := api.NewHandler(st, enrichment.New(st, 2, 100), predictor.New(st), risk.New(st), nil, "", "dev", time.Now().Format(time.RFC3339), "git")
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/health", nil))
	if rec.Code != 200 {
		t.Fatalf("/v1/health %d", rec.Code)
	}

	rec2 := httptest.NewRecorder()
	r.ServeHTTP(rec2, httptest.NewRequest("GET", "/v1/reports", nil))
	if rec2.Code != 200 {
		t.Fatalf("/v1/reports %d", rec2.Code)
	}

	rec3 := httptest.NewRecorder()
	r.ServeHTTP(rec3, httptest.NewRequest("GET", "/v1/insights/risk-areas", nil))
	if rec3.Code != 200 {
		t.Fatalf("/v1/insights/risk-areas %d", rec3.Code)
	}
}
