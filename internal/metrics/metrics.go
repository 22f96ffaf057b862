package metrics

import (
	"net/http"
	"time"
)

// Metrics interface for dependency injection
type Metrics interface {
	RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration)
	RecordReportEnriched(reportType, status string)
	RecordTrainingRun(status string, duration time.Duration)
	SetDBConnectionsActive(count float64)
	RecordStoreQuery(operation, status string)
	Handler() http.Handler
}

// NoOpMetrics provides a no-op implementation
type NoOpMetrics struct{}

func (m *NoOpMetrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
}
func (m *NoOpMetrics) RecordReportEnriched(reportType, status string)          {}
func (m *NoOpMetrics) RecordTrainingRun(status string, duration time.Duration) {}
func (m *NoOpMetrics) SetDBConnectionsActive(count float64)                    {}
func (m *NoOpMetrics) RecordStoreQuery(operation, status string)               {}
func (m *NoOpMetrics) Handler() http.Handler                                   { return http.NotFoundHandler() }

// Global metrics instance
var globalMetrics Metrics = &NoOpMetrics{}

// Init initializes metrics (no-op for now, can be extended with Prometheus)
func Init() {
	// For now, keep using no-op metrics
	// In a full implementation, this would initialize Prometheus metrics
}

// Handler returns the metrics handler
func Handler() http.Handler {
	return globalMetrics.Handler()
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	globalMetrics.RecordHTTPRequest(method, endpoint, statusCode, duration)
}

// RecordReportEnriched records report enrichment metrics
func RecordReportEnriched(reportType, status string) {
	globalMetrics.RecordReportEnriched(reportType, status)
}

// RecordTrainingRun records predictor training metrics
func RecordTrainingRun(status string, duration time.Duration) {
	globalMetrics.RecordTrainingRun(status, duration)
}

// SetDBConnectionsActive sets the number of active database connections
func SetDBConnectionsActive(count float64) {
	globalMetrics.SetDBConnectionsActive(count)
}

// RecordStoreQuery records store query metrics
func RecordStoreQuery(operation, status string) {
	globalMetrics.RecordStoreQuery(operation, status)
}
