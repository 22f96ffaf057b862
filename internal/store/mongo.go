package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "github.com/civicpulse/civicpulse/internal/errors"
	"github.com/civicpulse/civicpulse/internal/models"
)

const earthRadiusMeters = 6371000.0

// MongoStore implements Store on a MongoDB collection with a 2dsphere
// index on the location field. Locations are stored as GeoJSON points so
// $near queries return candidates sorted by distance.
type MongoStore struct {
	reports *mongo.Collection
}

// NewMongoStore creates a new MongoDB store
func NewMongoStore(reports *mongo.Collection) *MongoStore {
	return &MongoStore{reports: reports}
}

// geoPoint is the GeoJSON representation of a location, [lng, lat]
type geoPoint struct {
	Type        string     `bson:"type"`
	Coordinates [2]float64 `bson:"coordinates"`
}

type reportDoc struct {
	ID          string              `bson:"_id"`
	Title       string              `bson:"title"`
	Description string              `bson:"description"`
	ReportType  string              `bson:"report_type"`
	Status      string              `bson:"status"`
	Location    geoPoint            `bson:"location"`
	AddressText string              `bson:"address_text,omitempty"`
	MediaURLs   []string            `bson:"media_urls"`
	SubmittedBy string              `bson:"submitted_by"`
	Likes       []string            `bson:"likes"`
	Comments    []models.Comment    `bson:"comments"`

	AssignedWorkforce int     `bson:"assigned_workforce"`
	AssignedBudget    float64 `bson:"assigned_budget"`
	AssignedTo        string  `bson:"assigned_to,omitempty"`

	PriorityScore     int                    `bson:"priority_score"`
	AITags            []string               `bson:"ai_tags"`
	SentimentAnalysis models.SentimentResult `bson:"sentiment_analysis"`
	AIClassification  models.Classification  `bson:"ai_classification"`

	IsDuplicate bool   `bson:"is_duplicate"`
	DuplicateOf string `bson:"duplicate_of,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toDoc(r models.Report) reportDoc {
	return reportDoc{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		ReportType:  string(r.ReportType),
		Status:      string(r.Status),
		Location: geoPoint{
			Type:        "Point",
			Coordinates: [2]float64{r.Location.Longitude, r.Location.Latitude},
		},
		AddressText:       r.AddressText,
		MediaURLs:         orEmpty(r.MediaURLs),
		SubmittedBy:       r.SubmittedBy,
		Likes:             orEmpty(r.Likes),
		Comments:          orEmptyComments(r.Comments),
		AssignedWorkforce: r.AssignedWorkforce,
		AssignedBudget:    r.AssignedBudget,
		AssignedTo:        r.AssignedTo,
		PriorityScore:     r.PriorityScore,
		AITags:            orEmpty(r.AITags),
		SentimentAnalysis: r.SentimentAnalysis,
		AIClassification:  r.AIClassification,
		IsDuplicate:       r.IsDuplicate,
		DuplicateOf:       r.DuplicateOf,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func fromDoc(d reportDoc) models.Report {
	return models.Report{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		ReportType:  models.ReportType(d.ReportType),
		Status:      models.ReportStatus(d.Status),
		Location: models.Location{
			Longitude: d.Location.Coordinates[0],
			Latitude:  d.Location.Coordinates[1],
		},
		AddressText:       d.AddressText,
		MediaURLs:         d.MediaURLs,
		SubmittedBy:       d.SubmittedBy,
		Likes:             d.Likes,
		Comments:          d.Comments,
		AssignedWorkforce: d.AssignedWorkforce,
		AssignedBudget:    d.AssignedBudget,
		AssignedTo:        d.AssignedTo,
		PriorityScore:     d.PriorityScore,
		AITags:            d.AITags,
		SentimentAnalysis: d.SentimentAnalysis,
		AIClassification:  d.AIClassification,
		IsDuplicate:       d.IsDuplicate,
		DuplicateOf:       d.DuplicateOf,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

// InsertReport inserts a report, assigning an ID if missing
func (s *MongoStore) InsertReport(ctx context.Context, r *models.Report) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	r.UpdatedAt = r.CreatedAt

	if _, err := s.reports.InsertOne(ctx, toDoc(*r)); err != nil {
		return apperrors.StoreError{Operation: "insert report", Err: err}
	}
	return nil
}

// GetReport retrieves a single report by ID
func (s *MongoStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	var doc reportDoc
	err := s.reports.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, apperrors.StoreError{Operation: "get report", Err: err}
	}
	r := fromDoc(doc)
	return &r, nil
}

// QueryReports retrieves reports matching the query, newest first
func (s *MongoStore) QueryReports(ctx context.Context, q models.ReportQuery) ([]models.Report, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	if q.Offset > 0 {
		opts.SetSkip(int64(q.Offset))
	}
	return s.find(ctx, filterFrom(q), opts)
}

// TopByPriority returns the highest-priority reports, capped at limit
func (s *MongoStore) TopByPriority(ctx context.Context, limit int) ([]models.Report, error) {
	opts := options.Find().SetSort(bson.D{{Key: "priority_score", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return s.find(ctx, bson.M{}, opts)
}

// QueryNear retrieves matching reports within radiusMeters; $near returns
// them nearest first.
func (s *MongoStore) QueryNear(ctx context.Context, center models.Location, radiusMeters float64, q models.ReportQuery) ([]models.Report, error) {
	filter := filterFrom(q)
	filter["location"] = bson.M{
		"$near": bson.M{
			"$geometry": bson.M{
				"type":        "Point",
				"coordinates": []float64{center.Longitude, center.Latitude},
			},
			"$maxDistance": radiusMeters,
		},
	}

	opts := options.Find()
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	return s.find(ctx, filter, opts)
}

// CountNear counts reports within radiusMeters of center. $geoWithin is
// used instead of $near because count queries cannot sort by distance.
func (s *MongoStore) CountNear(ctx context.Context, center models.Location, radiusMeters float64, excludeID string) (int, error) {
	filter := bson.M{
		"location": bson.M{
			"$geoWithin": bson.M{
				"$centerSphere": []interface{}{
					[]float64{center.Longitude, center.Latitude},
					radiusMeters / earthRadiusMeters,
				},
			},
		},
	}
	if excludeID != "" {
		filter["_id"] = bson.M{"$ne": excludeID}
	}

	count, err := s.reports.CountDocuments(ctx, filter)
	if err != nil {
		return 0, apperrors.StoreError{Operation: "count near", Err: err}
	}
	return int(count), nil
}

// MarkDuplicate flags a report as a duplicate of another
func (s *MongoStore) MarkDuplicate(ctx context.Context, id, duplicateOf string) error {
	update := bson.M{"$set": bson.M{
		"is_duplicate": true,
		"duplicate_of": duplicateOf,
		"updated_at":   time.Now().UTC(),
	}}
	res, err := s.reports.UpdateByID(ctx, id, update)
	if err != nil {
		return apperrors.StoreError{Operation: "mark duplicate", Err: err}
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ToggleLike adds or removes the user's like
func (s *MongoStore) ToggleLike(ctx context.Context, id, userID string) (bool, int, error) {
	current, err := s.GetReport(ctx, id)
	if err != nil {
		return false, 0, err
	}
	if current == nil {
		return false, 0, apperrors.ErrNotFound
	}

	liked := true
	for _, u := range current.Likes {
		if u == userID {
			liked = false
			break
		}
	}

	var update bson.M
	if liked {
		update = bson.M{"$addToSet": bson.M{"likes": userID}}
	} else {
		update = bson.M{"$pull": bson.M{"likes": userID}}
	}
	update["$set"] = bson.M{"updated_at": time.Now().UTC()}

	if _, err := s.reports.UpdateByID(ctx, id, update); err != nil {
		return false, 0, apperrors.StoreError{Operation: "toggle like", Err: err}
	}

	count := len(current.Likes)
	if liked {
		count++
	} else {
		count--
	}
	return liked, count, nil
}

// AddComment appends a comment to a report
func (s *MongoStore) AddComment(ctx context.Context, id string, c models.Comment) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	update := bson.M{
		"$push": bson.M{"comments": c},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := s.reports.UpdateByID(ctx, id, update)
	if err != nil {
		return apperrors.StoreError{Operation: "add comment", Err: err}
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Assign records a worker's assignment; nil fields keep current values
func (s *MongoStore) Assign(ctx context.Context, id string, a Assignment) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if a.Workforce != nil {
		set["assigned_workforce"] = *a.Workforce
	}
	if a.Budget != nil {
		set["assigned_budget"] = *a.Budget
	}
	if a.Status != nil && a.Status.Valid() {
		set["status"] = string(*a.Status)
	}
	if a.WorkerID != "" {
		set["assigned_to"] = a.WorkerID
	}

	res, err := s.reports.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return apperrors.StoreError{Operation: "assign", Err: err}
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Stats aggregates the dashboard summary
func (s *MongoStore) Stats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{ByType: make(map[models.ReportType]int)}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "pending", Value: sumWhere("status", string(models.StatusPending))},
			{Key: "working", Value: sumWhere("status", string(models.StatusWorking))},
			{Key: "cleared", Value: sumWhere("status", string(models.StatusCleared))},
			{Key: "rejected", Value: sumWhere("status", string(models.StatusRejected))},
			{Key: "duplicates", Value: sumWhere("is_duplicate", true)},
			{Key: "total_budget", Value: bson.D{{Key: "$sum", Value: "$assigned_budget"}}},
			{Key: "total_workforce", Value: bson.D{{Key: "$sum", Value: "$assigned_workforce"}}},
		}}},
	}

	cursor, err := s.reports.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, apperrors.StoreError{Operation: "stats summary", Err: err}
	}
	defer cursor.Close(ctx)

	if cursor.Next(ctx) {
		var row struct {
			Total          int     `bson:"total"`
			Pending        int     `bson:"pending"`
			Working        int     `bson:"working"`
			Cleared        int     `bson:"cleared"`
			Rejected       int     `bson:"rejected"`
			Duplicates     int     `bson:"duplicates"`
			TotalBudget    float64 `bson:"total_budget"`
			TotalWorkforce int     `bson:"total_workforce"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, apperrors.StoreError{Operation: "decode stats", Err: err}
		}
		stats.Total = row.Total
		stats.Pending = row.Pending
		stats.Working = row.Working
		stats.Cleared = row.Cleared
		stats.Rejected = row.Rejected
		stats.Duplicates = row.Duplicates
		stats.TotalBudget = row.TotalBudget
		stats.TotalWorkforce = row.TotalWorkforce
	}
	if stats.Total > 0 {
		stats.ResolutionRate = float64(stats.Cleared) / float64(stats.Total) * 100
	}

	byType := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$report_type"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	typeCursor, err := s.reports.Aggregate(ctx, byType)
	if err != nil {
		return nil, apperrors.StoreError{Operation: "stats by type", Err: err}
	}
	defer typeCursor.Close(ctx)

	for typeCursor.Next(ctx) {
		var row struct {
			Type  string `bson:"_id"`
			Count int    `bson:"count"`
		}
		if err := typeCursor.Decode(&row); err != nil {
			return nil, apperrors.StoreError{Operation: "decode stats", Err: err}
		}
		stats.ByType[models.ReportType(row.Type)] = row.Count
	}
	return stats, typeCursor.Err()
}

// Health pings the server backing the collection
func (s *MongoStore) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.reports.Database().Client().Ping(ctx, nil)
}

func (s *MongoStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Report, error) {
	cursor, err := s.reports.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperrors.StoreError{Operation: "query reports", Err: err}
	}
	defer cursor.Close(ctx)

	var reports []models.Report
	for cursor.Next(ctx) {
		var doc reportDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, apperrors.StoreError{Operation: "decode report", Err: err}
		}
		reports = append(reports, fromDoc(doc))
	}
	return reports, cursor.Err()
}

func filterFrom(q models.ReportQuery) bson.M {
	filter := bson.M{}
	idFilter := bson.M{}
	if len(q.IDs) > 0 {
		idFilter["$in"] = q.IDs
	}
	if q.ExcludeID != "" {
		idFilter["$ne"] = q.ExcludeID
	}
	if len(idFilter) > 0 {
		filter["_id"] = idFilter
	}
	if len(q.Statuses) > 0 {
		filter["status"] = bson.M{"$in": statusStrings(q.Statuses)}
	}
	if len(q.Types) > 0 {
		filter["report_type"] = bson.M{"$in": typeStrings(q.Types)}
	}
	if q.AssignedOnly {
		filter["assigned_workforce"] = bson.M{"$gt": 0}
		filter["assigned_budget"] = bson.M{"$gt": 0}
	}
	created := bson.M{}
	if !q.Since.IsZero() {
		created["$gte"] = q.Since
	}
	if !q.Until.IsZero() {
		created["$lte"] = q.Until
	}
	if len(created) > 0 {
		filter["created_at"] = created
	}
	return filter
}

func sumWhere(field string, equals interface{}) bson.D {
	return bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{
		bson.D{{Key: "$eq", Value: bson.A{"$" + field, equals}}}, 1, 0,
	}}}}}
}
