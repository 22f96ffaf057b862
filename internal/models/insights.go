package models

// DuplicateMatch is a candidate identified as a likely duplicate
type DuplicateMatch struct {
	ReportID   string  `json:"report_id"`
	Similarity float64 `json:"similarity"`
	Reason     string  `json:"reason"`
}

// GridCell is a report location rounded to a 2-decimal-degree grid
// (roughly 1.1 km cells).
type GridCell struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RiskArea is a grid cell with enough active reports to rank
type RiskArea struct {
	Location  GridCell           `json:"location"`
	Count     int                `json:"count"`
	Types     map[ReportType]int `json:"types"`
	RiskScore int                `json:"riskScore"`
}

// Enrichment carries the fields computed at submission time, before the
// report is persisted.
type Enrichment struct {
	PriorityScore     int             `json:"priority_score"`
	AITags            []string        `json:"ai_tags"`
	SentimentAnalysis SentimentResult `json:"sentiment_analysis"`
	AIClassification  Classification  `json:"ai_classification"`
}

// TrainResult summarises a predictor training run
type TrainResult struct {
	Trained     bool `json:"trained"`
	Samples     int  `json:"samples"`
	ReportTypes int  `json:"reportTypes,omitempty"`
}

// PredictionReasoning exposes the raw factors behind a prediction so
// callers can audit why a number was produced.
type PredictionReasoning struct {
	ReportType    ReportType `json:"reportType"`
	PriorityScore int        `json:"priorityScore"`
	NearbyReports int        `json:"nearbyReports"`
	ModelTrained  bool       `json:"modelTrained"`
}

// Prediction is the resource estimate for a single report
type Prediction struct {
	PredictedWorkforce int                 `json:"predictedWorkforce"`
	PredictedBudget    int                 `json:"predictedBudget"`
	Confidence         float64             `json:"confidence"`
	Reasoning          PredictionReasoning `json:"reasoning"`
}
