package models

import "time"

// ReportStatus is the lifecycle state of a report
type ReportStatus string

const (
	StatusPending  ReportStatus = "PENDING"
	StatusWorking  ReportStatus = "WORKING"
	StatusCleared  ReportStatus = "CLEARED"
	StatusRejected ReportStatus = "REJECTED"
)

// Terminal reports are never revisited by triage or enrichment
func (s ReportStatus) Terminal() bool {
	return s == StatusCleared || s == StatusRejected
}

// Valid reports whether s is one of the known statuses
func (s ReportStatus) Valid() bool {
	switch s {
	case StatusPending, StatusWorking, StatusCleared, StatusRejected:
		return true
	}
	return false
}

// ActiveStatuses returns the non-terminal statuses
func ActiveStatuses() []ReportStatus {
	return []ReportStatus{StatusPending, StatusWorking}
}

// ReportType is the category of civic issue
type ReportType string

const (
	TypePothole     ReportType = "Pothole"
	TypeGarbage     ReportType = "Garbage"
	TypeStreetLight ReportType = "Street Light"
	TypeWaterLeak   ReportType = "Water Leak"
	TypeOther       ReportType = "Other"
)

// Valid reports whether t is one of the known report types
func (t ReportType) Valid() bool {
	switch t {
	case TypePothole, TypeGarbage, TypeStreetLight, TypeWaterLeak, TypeOther:
		return true
	}
	return false
}

// Location is a WGS84 point
type Location struct {
	Longitude float64 `json:"longitude" bson:"longitude"`
	Latitude  float64 `json:"latitude" bson:"latitude"`
}

// Valid checks coordinate ranges: longitude [-180,180], latitude [-90,90].
// The zero value (0,0) is treated as unset since no deployment sits on
// Null Island.
func (l Location) Valid() bool {
	if l.Longitude == 0 && l.Latitude == 0 {
		return false
	}
	return l.Longitude >= -180 && l.Longitude <= 180 &&
		l.Latitude >= -90 && l.Latitude <= 90
}

// Comment is a citizen comment attached to a report
type Comment struct {
	ID        string    `json:"id" bson:"id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Text      string    `json:"text" bson:"text"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// SentimentResult holds the lexicon-based sentiment of a piece of text
type SentimentResult struct {
	Sentiment     string  `json:"sentiment" bson:"sentiment"`
	Score         float64 `json:"score" bson:"score"`
	PositiveCount int     `json:"positive_count,omitempty" bson:"positive_count,omitempty"`
	NegativeCount int     `json:"negative_count,omitempty" bson:"negative_count,omitempty"`
}

// Classification is the rule-based type prediction for a report
type Classification struct {
	PredictedType ReportType `json:"predicted_type" bson:"predicted_type"`
	Confidence    float64    `json:"confidence" bson:"confidence"`
}

// Report represents a citizen-submitted civic issue
type Report struct {
	ID          string       `json:"id" bson:"_id,omitempty"`
	Title       string       `json:"title" bson:"title"`
	Description string       `json:"description" bson:"description"`
	ReportType  ReportType   `json:"report_type" bson:"report_type"`
	Status      ReportStatus `json:"status" bson:"status"`
	Location    Location     `json:"location" bson:"location"`
	AddressText string       `json:"address_text,omitempty" bson:"address_text,omitempty"`
	MediaURLs   []string     `json:"media_urls,omitempty" bson:"media_urls,omitempty"`
	SubmittedBy string       `json:"submitted_by" bson:"submitted_by"`

	Likes    []string  `json:"likes" bson:"likes"`
	Comments []Comment `json:"comments" bson:"comments"`

	AssignedWorkforce int     `json:"assigned_workforce" bson:"assigned_workforce"`
	AssignedBudget    float64 `json:"assigned_budget" bson:"assigned_budget"`
	AssignedTo        string  `json:"assigned_to,omitempty" bson:"assigned_to,omitempty"`

	// Enrichment fields, written once at submission
	PriorityScore     int             `json:"priority_score" bson:"priority_score"`
	AITags            []string        `json:"ai_tags" bson:"ai_tags"`
	SentimentAnalysis SentimentResult `json:"sentiment_analysis" bson:"sentiment_analysis"`
	AIClassification  Classification  `json:"ai_classification" bson:"ai_classification"`

	// Duplicate flag, set at most once in the follow-up pass
	IsDuplicate bool   `json:"is_duplicate" bson:"is_duplicate"`
	DuplicateOf string `json:"duplicate_of,omitempty" bson:"duplicate_of,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// LikeCount returns the number of distinct likes
func (r Report) LikeCount() int { return len(r.Likes) }

// ReportQuery represents filter parameters for report scans
type ReportQuery struct {
	IDs          []string       `json:"ids"`
	ExcludeID    string         `json:"exclude_id"`
	Statuses     []ReportStatus `json:"statuses"`
	Types        []ReportType   `json:"types"`
	AssignedOnly bool           `json:"assigned_only"` // workforce > 0 and budget > 0
	Since        time.Time      `json:"since"`
	Until        time.Time      `json:"until"`
	Limit        int            `json:"limit"`
	Offset       int            `json:"offset"`
}

// Matches checks if a report satisfies the query criteria
func (q ReportQuery) Matches(r Report) bool {
	if len(q.IDs) > 0 && !containsString(q.IDs, r.ID) {
		return false
	}
	if q.ExcludeID != "" && r.ID == q.ExcludeID {
		return false
	}
	if len(q.Statuses) > 0 && !containsStatus(q.Statuses, r.Status) {
		return false
	}
	if len(q.Types) > 0 && !containsType(q.Types, r.ReportType) {
		return false
	}
	if q.AssignedOnly && (r.AssignedWorkforce <= 0 || r.AssignedBudget <= 0) {
		return false
	}
	if !q.Since.IsZero() && r.CreatedAt.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && r.CreatedAt.After(q.Until) {
		return false
	}
	return true
}

func containsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func containsStatus(slice []ReportStatus, item ReportStatus) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func containsType(slice []ReportType, item ReportType) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
