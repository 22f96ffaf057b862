package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/civicpulse/civicpulse/internal/models"
)

func fixedScorer(t *testing.T) (*Scorer, time.Time) {
	t.Helper()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	return NewAt(func() time.Time { return now }), now
}

func TestPriorityScore(t *testing.T) {
	s, now := fixedScorer(t)

	tests := []struct {
		name   string
		report models.Report
		ctx    ScoreContext
		want   int
	}{
		{
			name:   "fresh water leak gets base score only",
			report: models.Report{ReportType: models.TypeWaterLeak, CreatedAt: now},
			want:   30,
		},
		{
			name: "garbage with engagement and density",
			report: models.Report{
				ReportType: models.TypeGarbage,
				Likes:      manyUsers(10),
				Comments:   manyComments(5),
				CreatedAt:  now,
			},
			ctx:  ScoreContext{NearbyReports: 5},
			want: 45,
		},
		{
			name:   "unknown type falls back to lowest base",
			report: models.Report{ReportType: "Sinkhole", CreatedAt: now},
			want:   10,
		},
		{
			name:   "age factor caps at 15",
			report: models.Report{ReportType: models.TypeWaterLeak, CreatedAt: now.Add(-10 * 24 * time.Hour)},
			want:   45,
		},
		{
			name: "urgency keywords add 2 each",
			report: models.Report{
				ReportType:  models.TypeWaterLeak,
				Description: "Urgent and dangerous emergency",
				CreatedAt:   now,
			},
			want: 36,
		},
		{
			name: "urgency factor caps at 10",
			report: models.Report{
				ReportType:  models.TypePothole,
				Description: "urgent emergency dangerous critical immediate severe",
				CreatedAt:   now,
			},
			want: 35,
		},
		{
			name: "engagement factor caps at 20",
			report: models.Report{
				ReportType: models.TypeGarbage,
				Likes:      manyUsers(20),
				CreatedAt:  now,
			},
			want: 35,
		},
		{
			name: "all factors maxed hits the ceiling",
			report: models.Report{
				ReportType:  models.TypeWaterLeak,
				Likes:       manyUsers(20),
				Description: "urgent emergency dangerous critical immediate severe",
				CreatedAt:   now.Add(-30 * 24 * time.Hour),
			},
			ctx:  ScoreContext{NearbyReports: 20},
			want: 100,
		},
		{
			name:   "negative nearby counts as zero",
			report: models.Report{ReportType: models.TypePothole, CreatedAt: now},
			ctx:    ScoreContext{NearbyReports: -3},
			want:   25,
		},
		{
			name:   "zero created time contributes no age",
			report: models.Report{ReportType: models.TypeOther},
			want:   10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.PriorityScore(tt.report, tt.ctx)
			if got != tt.want {
				t.Errorf("PriorityScore() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAnalyzeSentiment(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		wantSentiment string
		wantScore     float64
	}{
		{"empty text is neutral", "", "neutral", 0},
		{"whitespace only is neutral", "   \t  ", "neutral", 0},
		{"no lexicon hits is neutral", "the street lamp near the park", "neutral", 0},
		{"all positive", "thank you, fixed fast", "positive", 1},
		{"all negative", "terrible slow response, still broken", "negative", -1},
		{"balanced stays neutral", "good but slow", "neutral", 0},
		{"rounded to two decimals", "good good slow", "positive", 0.33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeSentiment(tt.text)
			if got.Sentiment != tt.wantSentiment {
				t.Errorf("Sentiment = %q, want %q", got.Sentiment, tt.wantSentiment)
			}
			if got.Score != tt.wantScore {
				t.Errorf("Score = %v, want %v", got.Score, tt.wantScore)
			}
		})
	}

	t.Run("counts are reported", func(t *testing.T) {
		got := AnalyzeSentiment("thank you, fixed fast but still broken")
		if got.PositiveCount != 3 || got.NegativeCount != 1 {
			t.Errorf("counts = %d/%d, want 3/1", got.PositiveCount, got.NegativeCount)
		}
	})
}

func TestGenerateTags(t *testing.T) {
	t.Run("address and content tags in order", func(t *testing.T) {
		r := models.Report{
			Title:       "Urgent water leak",
			Description: "water flooding the road",
			ReportType:  models.TypeWaterLeak,
			AddressText: "Main Street near the school",
		}
		want := []string{"street", "school", "urgent", "water-related", "traffic", "water-leak"}
		got := GenerateTags(r)
		if !equalStrings(got, want) {
			t.Errorf("GenerateTags() = %v, want %v", got, want)
		}
	})

	t.Run("type tag is always last", func(t *testing.T) {
		r := models.Report{Title: "Overflowing bin", ReportType: models.TypeGarbage}
		got := GenerateTags(r)
		if len(got) != 1 || got[0] != "garbage" {
			t.Errorf("GenerateTags() = %v, want [garbage]", got)
		}
	})

	t.Run("duplicates collapse keeping first position", func(t *testing.T) {
		r := models.Report{
			Title:       "Street light out",
			Description: "very dark street",
			ReportType:  models.TypeStreetLight,
			AddressText: "2nd street",
		}
		got := GenerateTags(r)
		seen := map[string]int{}
		for _, tag := range got {
			seen[tag]++
		}
		if seen["street"] != 1 {
			t.Errorf("expected street tag exactly once, got %v", got)
		}
		if got[len(got)-1] != "street-light" {
			t.Errorf("expected street-light last, got %v", got)
		}
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name           string
		title, desc    string
		wantType       models.ReportType
		wantConfidence float64
	}{
		{
			name:           "water keywords dominate",
			title:          "Water pipe leak",
			desc:           "flooding near the junction",
			wantType:       models.TypeWaterLeak,
			wantConfidence: 100,
		},
		{
			name:           "pothole from road damage",
			title:          "Big hole",
			desc:           "in the road",
			wantType:       models.TypePothole,
			wantConfidence: 2.0 / 3 * 100,
		},
		{
			name:           "tie keeps the earlier candidate",
			title:          "Trash",
			desc:           "on the road",
			wantType:       models.TypePothole,
			wantConfidence: 1.0 / 3 * 100,
		},
		{
			name:           "no keywords falls back to Other",
			title:          "Something strange",
			desc:           "happened here",
			wantType:       models.TypeOther,
			wantConfidence: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(models.Report{Title: tt.title, Description: tt.desc})
			if got.PredictedType != tt.wantType {
				t.Errorf("PredictedType = %v, want %v", got.PredictedType, tt.wantType)
			}
			if math.Abs(got.Confidence-tt.wantConfidence) > 1e-9 {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.wantConfidence)
			}
		})
	}
}

func manyUsers(n int) []string {
	users := make([]string, n)
	for i := range users {
		users[i] = "user-" + string(rune('a'+i%26)) + string(rune('0'+i/26))
	}
	return users
}

func manyComments(n int) []models.Comment {
	comments := make([]models.Comment, n)
	for i := range comments {
		comments[i] = models.Comment{UserID: "u", Text: "comment"}
	}
	return comments
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
