package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/civicpulse/civicpulse/internal/errors"
	"github.com/civicpulse/civicpulse/internal/geo"
	"github.com/civicpulse/civicpulse/internal/models"
)

// InMemoryStore implements Store using in-memory storage
type InMemoryStore struct {
	mu      sync.RWMutex
	reports map[string]models.Report
}

// NewInMemoryStore creates a new in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		reports: make(map[string]models.Report),
	}
}

// InsertReport stores a report, assigning an ID if missing
func (s *InMemoryStore) InsertReport(ctx context.Context, r *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	r.UpdatedAt = r.CreatedAt
	s.reports[r.ID] = cloneReport(*r)
	return nil
}

// GetReport retrieves a single report by ID
func (s *InMemoryStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, exists := s.reports[id]; exists {
		out := cloneReport(r)
		return &out, nil
	}
	return nil, nil
}

// QueryReports retrieves reports matching the query, newest first
func (s *InMemoryStore) QueryReports(ctx context.Context, q models.ReportQuery) ([]models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Report
	for _, r := range s.reports {
		if q.Matches(r) {
			result = append(result, cloneReport(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return paginate(result, q.Offset, q.Limit), nil
}

// TopByPriority returns the highest-priority reports, capped at limit
func (s *InMemoryStore) TopByPriority(ctx context.Context, limit int) ([]models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Report, 0, len(s.reports))
	for _, r := range s.reports {
		result = append(result, cloneReport(r))
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].PriorityScore > result[j].PriorityScore
	})

	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

// QueryNear returns matching reports within radiusMeters of center,
// nearest first.
func (s *InMemoryStore) QueryNear(ctx context.Context, center models.Location, radiusMeters float64, q models.ReportQuery) ([]models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type withDistance struct {
		report models.Report
		meters float64
	}

	var near []withDistance
	for _, r := range s.reports {
		if !q.Matches(r) || !r.Location.Valid() {
			continue
		}
		d := geo.DistanceMeters(center, r.Location)
		if d <= radiusMeters {
			near = append(near, withDistance{report: cloneReport(r), meters: d})
		}
	}

	sort.Slice(near, func(i, j int) bool { return near[i].meters < near[j].meters })

	result := make([]models.Report, 0, len(near))
	for _, n := range near {
		result = append(result, n.report)
	}
	return paginate(result, q.Offset, q.Limit), nil
}

// CountNear counts reports within radiusMeters of center
func (s *InMemoryStore) CountNear(ctx context.Context, center models.Location, radiusMeters float64, excludeID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, r := range s.reports {
		if r.ID == excludeID || !r.Location.Valid() {
			continue
		}
		if geo.DistanceMeters(center, r.Location) <= radiusMeters {
			count++
		}
	}
	return count, nil
}

// MarkDuplicate flags a report as a duplicate of another
func (s *InMemoryStore) MarkDuplicate(ctx context.Context, id, duplicateOf string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.reports[id]
	if !exists {
		return apperrors.ErrNotFound
	}
	r.IsDuplicate = true
	r.DuplicateOf = duplicateOf
	r.UpdatedAt = time.Now().UTC()
	s.reports[id] = r
	return nil
}

// ToggleLike adds the user's like, or removes it if already present
func (s *InMemoryStore) ToggleLike(ctx context.Context, id, userID string) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.reports[id]
	if !exists {
		return false, 0, apperrors.ErrNotFound
	}

	// Filter into a fresh slice; reports handed out earlier alias the
	// stored backing array and must not see the compaction.
	liked := true
	kept := make([]string, 0, len(r.Likes))
	for _, u := range r.Likes {
		if u == userID {
			liked = false
			continue
		}
		kept = append(kept, u)
	}
	r.Likes = kept
	if liked {
		r.Likes = append(r.Likes, userID)
	}
	r.UpdatedAt = time.Now().UTC()
	s.reports[id] = r
	return liked, len(r.Likes), nil
}

// AddComment appends a comment to a report
func (s *InMemoryStore) AddComment(ctx context.Context, id string, c models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.reports[id]
	if !exists {
		return apperrors.ErrNotFound
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	r.Comments = append(r.Comments, c)
	r.UpdatedAt = time.Now().UTC()
	s.reports[id] = r
	return nil
}

// Assign records a worker's workforce/budget/status assignment
func (s *InMemoryStore) Assign(ctx context.Context, id string, a Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.reports[id]
	if !exists {
		return apperrors.ErrNotFound
	}
	if a.Workforce != nil {
		r.AssignedWorkforce = *a.Workforce
	}
	if a.Budget != nil {
		r.AssignedBudget = *a.Budget
	}
	if a.Status != nil && a.Status.Valid() {
		r.Status = *a.Status
	}
	if a.WorkerID != "" {
		r.AssignedTo = a.WorkerID
	}
	r.UpdatedAt = time.Now().UTC()
	s.reports[id] = r
	return nil
}

// Stats aggregates the dashboard summary over all reports
func (s *InMemoryStore) Stats(ctx context.Context) (*models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &models.Stats{ByType: make(map[models.ReportType]int)}
	for _, r := range s.reports {
		stats.Total++
		switch r.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusWorking:
			stats.Working++
		case models.StatusCleared:
			stats.Cleared++
		case models.StatusRejected:
			stats.Rejected++
		}
		stats.ByType[r.ReportType]++
		stats.TotalBudget += r.AssignedBudget
		stats.TotalWorkforce += r.AssignedWorkforce
		if r.IsDuplicate {
			stats.Duplicates++
		}
	}
	if stats.Total > 0 {
		stats.ResolutionRate = float64(stats.Cleared) / float64(stats.Total) * 100
	}
	return stats, nil
}

// Health always returns nil for in-memory store
func (s *InMemoryStore) Health(ctx context.Context) error {
	return nil
}

// cloneReport copies the report's slice fields so stored state and
// handed-out reports never share backing arrays.
func cloneReport(r models.Report) models.Report {
	r.Likes = append([]string(nil), r.Likes...)
	r.Comments = append([]models.Comment(nil), r.Comments...)
	r.MediaURLs = append([]string(nil), r.MediaURLs...)
	r.AITags = append([]string(nil), r.AITags...)
	return r
}

func paginate(reports []models.Report, offset, limit int) []models.Report {
	if offset > 0 {
		if offset >= len(reports) {
			return []models.Report{}
		}
		reports = reports[offset:]
	}
	if limit > 0 && limit < len(reports) {
		reports = reports[:limit]
	}
	return reports
}
