package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	apperrors "github.com/civicpulse/civicpulse/internal/errors"
	"github.com/civicpulse/civicpulse/internal/models"
)

func timeNowUTC() time.Time { return time.Now().UTC() }

// PostgresStore implements Store using PostgreSQL. Point-radius queries
// use the haversine formula directly in SQL over the lat/lng columns; no
// PostGIS required at the ~100m-5km radii the engine works with.
type PostgresStore struct {
	db Database
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db Database) *PostgresStore {
	return &PostgresStore{db: db}
}

const reportColumns = `
	id, title, description, report_type, status, longitude, latitude,
	address_text, media_urls, submitted_by, likes, comments,
	assigned_workforce, assigned_budget, assigned_to,
	priority_score, ai_tags, sentiment, sentiment_score,
	predicted_type, classification_confidence,
	is_duplicate, duplicate_of, created_at, updated_at
`

// distanceExpr computes haversine meters between the row and ($lat,$lng)
// placeholders that the caller binds.
func distanceExpr(latArg, lngArg int) string {
	return fmt.Sprintf(`2 * 6371000 * asin(sqrt(
		power(sin(radians(latitude - $%d) / 2), 2) +
		cos(radians($%d)) * cos(radians(latitude)) *
		power(sin(radians(longitude - $%d) / 2), 2)))`, latArg, latArg, lngArg)
}

// InsertReport inserts a report, assigning an ID if missing
func (s *PostgresStore) InsertReport(ctx context.Context, r *models.Report) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	comments, err := json.Marshal(orEmptyComments(r.Comments))
	if err != nil {
		return fmt.Errorf("marshal comments: %w", err)
	}

	if r.CreatedAt.IsZero() {
		r.CreatedAt = timeNowUTC()
	}
	r.UpdatedAt = r.CreatedAt

	query := `
		INSERT INTO reports (` + reportColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23,
			$24, $25)
	`
	err = s.db.Exec(ctx, query,
		r.ID, r.Title, r.Description, string(r.ReportType), string(r.Status),
		r.Location.Longitude, r.Location.Latitude,
		r.AddressText, orEmpty(r.MediaURLs), r.SubmittedBy, orEmpty(r.Likes), comments,
		r.AssignedWorkforce, r.AssignedBudget, r.AssignedTo,
		r.PriorityScore, orEmpty(r.AITags),
		r.SentimentAnalysis.Sentiment, r.SentimentAnalysis.Score,
		string(r.AIClassification.PredictedType), r.AIClassification.Confidence,
		r.IsDuplicate, r.DuplicateOf, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return apperrors.StoreError{Operation: "insert report", Err: err}
	}
	return nil
}

// GetReport retrieves a single report by ID
func (s *PostgresStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`

	rowInterface := s.db.QueryRow(ctx, query, id)
	row, ok := rowInterface.(pgx.Row)
	if !ok {
		return nil, fmt.Errorf("invalid row type")
	}

	r, err := scanReport(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, apperrors.StoreError{Operation: "get report", Err: err}
	}
	return r, nil
}

// QueryReports retrieves reports matching the query, newest first
func (s *PostgresStore) QueryReports(ctx context.Context, q models.ReportQuery) ([]models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE 1=1`
	args, query := appendFilters(query, nil, q)
	query += " ORDER BY created_at DESC"
	query = appendPagination(query, &args, q)

	return s.queryMany(ctx, query, args)
}

// TopByPriority returns the highest-priority reports, capped at limit
func (s *PostgresStore) TopByPriority(ctx context.Context, limit int) ([]models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports ORDER BY priority_score DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}
	return s.queryMany(ctx, query, args)
}

// QueryNear retrieves matching reports within radiusMeters, nearest first
func (s *PostgresStore) QueryNear(ctx context.Context, center models.Location, radiusMeters float64, q models.ReportQuery) ([]models.Report, error) {
	args := []interface{}{center.Latitude, center.Longitude, radiusMeters}
	dist := distanceExpr(1, 2)
	query := `SELECT ` + reportColumns + `, ` + dist + ` AS distance_m
		FROM reports WHERE ` + dist + ` <= $3`
	args, query = appendFilters(query, args, q)
	query += " ORDER BY distance_m ASC"
	query = appendPagination(query, &args, q)

	rowsInterface, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.StoreError{Operation: "query near", Err: err}
	}
	rows, ok := rowsInterface.(pgx.Rows)
	if !ok {
		return nil, fmt.Errorf("invalid rows type")
	}
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		var distance float64
		r, err := scanReportWith(rows, &distance)
		if err != nil {
			return nil, apperrors.StoreError{Operation: "scan report", Err: err}
		}
		reports = append(reports, *r)
	}
	return reports, rows.Err()
}

// CountNear counts reports within radiusMeters of center
func (s *PostgresStore) CountNear(ctx context.Context, center models.Location, radiusMeters float64, excludeID string) (int, error) {
	query := `SELECT COUNT(*) FROM reports
		WHERE ` + distanceExpr(1, 2) + ` <= $3 AND id <> $4`

	rowInterface := s.db.QueryRow(ctx, query, center.Latitude, center.Longitude, radiusMeters, excludeID)
	row, ok := rowInterface.(pgx.Row)
	if !ok {
		return 0, fmt.Errorf("invalid row type")
	}

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, apperrors.StoreError{Operation: "count near", Err: err}
	}
	return count, nil
}

// MarkDuplicate flags a report as a duplicate of another
func (s *PostgresStore) MarkDuplicate(ctx context.Context, id, duplicateOf string) error {
	query := `UPDATE reports
		SET is_duplicate = TRUE, duplicate_of = $2, updated_at = NOW()
		WHERE id = $1`
	if err := s.db.Exec(ctx, query, id, duplicateOf); err != nil {
		return apperrors.StoreError{Operation: "mark duplicate", Err: err}
	}
	return nil
}

// ToggleLike flips the user's like in a single atomic statement
func (s *PostgresStore) ToggleLike(ctx context.Context, id, userID string) (bool, int, error) {
	query := `UPDATE reports
		SET likes = CASE
			WHEN $2 = ANY(likes) THEN array_remove(likes, $2)
			ELSE array_append(likes, $2)
		END,
		updated_at = NOW()
		WHERE id = $1
		RETURNING $2 = ANY(likes), cardinality(likes)`

	rowInterface := s.db.QueryRow(ctx, query, id, userID)
	row, ok := rowInterface.(pgx.Row)
	if !ok {
		return false, 0, fmt.Errorf("invalid row type")
	}

	var liked bool
	var count int
	if err := row.Scan(&liked, &count); err != nil {
		if err == pgx.ErrNoRows {
			return false, 0, apperrors.ErrNotFound
		}
		return false, 0, apperrors.StoreError{Operation: "toggle like", Err: err}
	}
	return liked, count, nil
}

// AddComment appends a comment to the report's comment array
func (s *PostgresStore) AddComment(ctx context.Context, id string, c models.Comment) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	payload, err := json.Marshal([]models.Comment{c})
	if err != nil {
		return fmt.Errorf("marshal comment: %w", err)
	}

	query := `UPDATE reports
		SET comments = comments || $2::jsonb, updated_at = NOW()
		WHERE id = $1`
	if err := s.db.Exec(ctx, query, id, payload); err != nil {
		return apperrors.StoreError{Operation: "add comment", Err: err}
	}
	return nil
}

// Assign records a worker's assignment; nil fields keep current values
func (s *PostgresStore) Assign(ctx context.Context, id string, a Assignment) error {
	var status *string
	if a.Status != nil && a.Status.Valid() {
		v := string(*a.Status)
		status = &v
	}

	query := `UPDATE reports SET
		assigned_workforce = COALESCE($2, assigned_workforce),
		assigned_budget = COALESCE($3, assigned_budget),
		status = COALESCE($4, status),
		assigned_to = CASE WHEN $5 <> '' THEN $5 ELSE assigned_to END,
		updated_at = NOW()
		WHERE id = $1`
	if err := s.db.Exec(ctx, query, id, a.Workforce, a.Budget, status, a.WorkerID); err != nil {
		return apperrors.StoreError{Operation: "assign", Err: err}
	}
	return nil
}

// Stats aggregates the dashboard summary
func (s *PostgresStore) Stats(ctx context.Context) (*models.Stats, error) {
	summary := `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE status = 'PENDING'),
		COUNT(*) FILTER (WHERE status = 'WORKING'),
		COUNT(*) FILTER (WHERE status = 'CLEARED'),
		COUNT(*) FILTER (WHERE status = 'REJECTED'),
		COUNT(*) FILTER (WHERE is_duplicate),
		COALESCE(SUM(assigned_budget), 0),
		COALESCE(SUM(assigned_workforce), 0)
		FROM reports`

	rowInterface := s.db.QueryRow(ctx, summary)
	row, ok := rowInterface.(pgx.Row)
	if !ok {
		return nil, fmt.Errorf("invalid row type")
	}

	stats := &models.Stats{ByType: make(map[models.ReportType]int)}
	err := row.Scan(&stats.Total, &stats.Pending, &stats.Working,
		&stats.Cleared, &stats.Rejected, &stats.Duplicates,
		&stats.TotalBudget, &stats.TotalWorkforce)
	if err != nil {
		return nil, apperrors.StoreError{Operation: "stats summary", Err: err}
	}
	if stats.Total > 0 {
		stats.ResolutionRate = float64(stats.Cleared) / float64(stats.Total) * 100
	}

	rowsInterface, err := s.db.Query(ctx, `SELECT report_type, COUNT(*) FROM reports GROUP BY report_type`)
	if err != nil {
		return nil, apperrors.StoreError{Operation: "stats by type", Err: err}
	}
	rows, ok := rowsInterface.(pgx.Rows)
	if !ok {
		return nil, fmt.Errorf("invalid rows type")
	}
	defer rows.Close()

	for rows.Next() {
		var reportType string
		var count int
		if err := rows.Scan(&reportType, &count); err != nil {
			return nil, apperrors.StoreError{Operation: "scan stats", Err: err}
		}
		stats.ByType[models.ReportType(reportType)] = count
	}
	return stats, rows.Err()
}

// Health checks the database connection
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}

func (s *PostgresStore) queryMany(ctx context.Context, query string, args []interface{}) ([]models.Report, error) {
	rowsInterface, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.StoreError{Operation: "query reports", Err: err}
	}
	rows, ok := rowsInterface.(pgx.Rows)
	if !ok {
		return nil, fmt.Errorf("invalid rows type")
	}
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, apperrors.StoreError{Operation: "scan report", Err: err}
		}
		reports = append(reports, *r)
	}
	return reports, rows.Err()
}

// appendFilters adds WHERE conditions for the query filters, continuing
// the placeholder numbering from len(args).
func appendFilters(query string, args []interface{}, q models.ReportQuery) ([]interface{}, string) {
	idx := len(args) + 1

	if len(q.IDs) > 0 {
		query += fmt.Sprintf(" AND id = ANY($%d)", idx)
		args = append(args, q.IDs)
		idx++
	}
	if q.ExcludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", idx)
		args = append(args, q.ExcludeID)
		idx++
	}
	if len(q.Statuses) > 0 {
		query += fmt.Sprintf(" AND status = ANY($%d)", idx)
		args = append(args, statusStrings(q.Statuses))
		idx++
	}
	if len(q.Types) > 0 {
		query += fmt.Sprintf(" AND report_type = ANY($%d)", idx)
		args = append(args, typeStrings(q.Types))
		idx++
	}
	if q.AssignedOnly {
		query += " AND assigned_workforce > 0 AND assigned_budget > 0"
	}
	if !q.Since.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", idx)
		args = append(args, q.Since)
		idx++
	}
	if !q.Until.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", idx)
		args = append(args, q.Until)
		idx++
	}
	return args, query
}

func appendPagination(query string, args *[]interface{}, q models.ReportQuery) string {
	idx := len(*args) + 1
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", idx)
		*args = append(*args, q.Limit)
		idx++
	}
	if q.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", idx)
		*args = append(*args, q.Offset)
	}
	return query
}

func scanReport(row pgx.Row) (*models.Report, error) {
	return scanReportWith(row)
}

// scanReportWith scans a report row plus any trailing extra columns
func scanReportWith(row pgx.Row, extra ...any) (*models.Report, error) {
	var r models.Report
	var reportType, status, predictedType string
	var commentsJSON []byte

	dest := []any{
		&r.ID, &r.Title, &r.Description, &reportType, &status,
		&r.Location.Longitude, &r.Location.Latitude,
		&r.AddressText, &r.MediaURLs, &r.SubmittedBy, &r.Likes, &commentsJSON,
		&r.AssignedWorkforce, &r.AssignedBudget, &r.AssignedTo,
		&r.PriorityScore, &r.AITags,
		&r.SentimentAnalysis.Sentiment, &r.SentimentAnalysis.Score,
		&predictedType, &r.AIClassification.Confidence,
		&r.IsDuplicate, &r.DuplicateOf, &r.CreatedAt, &r.UpdatedAt,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	r.ReportType = models.ReportType(reportType)
	r.Status = models.ReportStatus(status)
	r.AIClassification.PredictedType = models.ReportType(predictedType)
	if len(commentsJSON) > 0 {
		if err := json.Unmarshal(commentsJSON, &r.Comments); err != nil {
			return nil, fmt.Errorf("unmarshal comments: %w", err)
		}
	}
	return &r, nil
}

func statusStrings(statuses []models.ReportStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func typeStrings(types []models.ReportType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyComments(c []models.Comment) []models.Comment {
	if c == nil {
		return []models.Comment{}
	}
	return c
}
