package models

// Stats is the admin dashboard summary
type Stats struct {
	Total          int                `json:"total"`
	Pending        int                `json:"pending"`
	Working        int                `json:"working"`
	Cleared        int                `json:"cleared"`
	Rejected       int                `json:"rejected"`
	ResolutionRate float64            `json:"resolution_rate"`
	ByType         map[ReportType]int `json:"by_type"`
	TotalBudget    float64            `json:"total_budget"`
	TotalWorkforce int                `json:"total_workforce"`
	Duplicates     int                `json:"duplicates"`
}
