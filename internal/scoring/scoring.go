// Package scoring implements the rule-based enrichment primitives:
// priority scoring, sentiment analysis, auto-tagging, and the keyword
// classifier. Everything here is deterministic arithmetic over report
// text and metadata; the only input beyond the report itself is the
// nearby-report count supplied by the caller.
package scoring

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/civicpulse/civicpulse/internal/models"
	"github.com/civicpulse/civicpulse/pkg/utils"
)

// Type base scores: how severe each issue category is on its own
var typeBaseScores = map[models.ReportType]float64{
	models.TypeWaterLeak:   30,
	models.TypePothole:     25,
	models.TypeStreetLight: 20,
	models.TypeGarbage:     15,
	models.TypeOther:       10,
}

var urgencyKeywords = []string{
	"urgent", "emergency", "dangerous", "critical",
	"immediate", "severe", "broken", "damaged",
}

var positiveWords = []string{
	"good", "great", "excellent", "fixed", "resolved",
	"thanks", "thank", "appreciate", "helpful", "fast", "quick",
}

var negativeWords = []string{
	"bad", "terrible", "awful", "broken", "damaged",
	"urgent", "dangerous", "critical", "failed", "slow", "delayed",
}

// classifierKeywords is ordered; on tied scores the earlier entry wins
var classifierKeywords = []struct {
	reportType models.ReportType
	keywords   []string
}{
	{models.TypePothole, []string{"pothole", "hole", "road", "crack", "damage"}},
	{models.TypeGarbage, []string{"garbage", "trash", "waste", "litter", "dump"}},
	{models.TypeStreetLight, []string{"light", "lamp", "dark", "illumination", "bulb"}},
	{models.TypeWaterLeak, []string{"water", "leak", "pipe", "flood", "drainage"}},
}

// ScoreContext carries the per-call inputs to priority scoring
type ScoreContext struct {
	NearbyReports int
}

// Scorer computes enrichment values for reports
type Scorer struct {
	now func() time.Time
}

// New creates a new scorer
func New() *Scorer {
	return &Scorer{now: time.Now}
}

// NewAt creates a scorer with a fixed clock, for deterministic tests
func NewAt(now func() time.Time) *Scorer {
	return &Scorer{now: now}
}

// PriorityScore computes the 0-100 priority of a report as a weighted sum
// of type severity, area density, engagement, age, and urgency language.
// Each factor is clamped to its own sub-range before summing.
func (s *Scorer) PriorityScore(r models.Report, sc ScoreContext) int {
	var score float64

	// Factor 1: report type (0-30)
	base, ok := typeBaseScores[r.ReportType]
	if !ok {
		base = 10
	}
	score += base

	// Factor 2: location density (0-25)
	nearby := float64(sc.NearbyReports)
	if nearby < 0 {
		nearby = 0
	}
	score += math.Min(nearby*2, 25)

	// Factor 3: user engagement (0-20)
	likes := float64(len(r.Likes))
	comments := float64(len(r.Comments))
	score += math.Min(likes*2+comments*3, 20)

	// Factor 4: age (0-15), older reports rise in priority
	var days float64
	if !r.CreatedAt.IsZero() {
		days = s.now().Sub(r.CreatedAt).Hours() / 24
		if math.IsNaN(days) || days < 0 {
			days = 0
		}
	}
	score += math.Min(days*2, 15)

	// Factor 5: urgency keywords in the description (0-10)
	desc := strings.ToLower(r.Description)
	var keywordScore float64
	for _, kw := range urgencyKeywords {
		if strings.Contains(desc, kw) {
			keywordScore += 2
		}
	}
	score += math.Min(keywordScore, 10)

	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 50
	}

	rounded := int(math.Round(score))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

// AnalyzeSentiment tallies tokens against the positive and negative
// lexicons. Score is (pos-neg)/(pos+neg) rounded to 2 decimals; text with
// no lexicon hits is neutral with score 0.
func AnalyzeSentiment(text string) models.SentimentResult {
	if strings.TrimSpace(text) == "" {
		return models.SentimentResult{Sentiment: "neutral", Score: 0}
	}

	tokens := tokenize(strings.ToLower(text))

	var positive, negative int
	for _, tok := range tokens {
		if containsWord(positiveWords, tok) {
			positive++
		}
		if containsWord(negativeWords, tok) {
			negative++
		}
	}

	total := positive + negative
	if total == 0 {
		return models.SentimentResult{Sentiment: "neutral", Score: 0}
	}

	score := math.Round(float64(positive-negative)/float64(total)*100) / 100

	sentiment := "neutral"
	if score > 0.2 {
		sentiment = "positive"
	} else if score < -0.2 {
		sentiment = "negative"
	}

	return models.SentimentResult{
		Sentiment:     sentiment,
		Score:         score,
		PositiveCount: positive,
		NegativeCount: negative,
	}
}

// GenerateTags derives tags from the report's address and content plus the
// report type itself. The result is deduplicated, insertion-ordered.
func GenerateTags(r models.Report) []string {
	var tags []string

	if r.AddressText != "" {
		address := strings.ToLower(r.AddressText)
		if utils.ContainsAny(address, "street", "road") {
			tags = append(tags, "street")
		}
		if strings.Contains(address, "park") {
			tags = append(tags, "park")
		}
		if strings.Contains(address, "school") {
			tags = append(tags, "school")
		}
		if strings.Contains(address, "hospital") {
			tags = append(tags, "hospital")
		}
	}

	text := strings.ToLower(r.Title + " " + r.Description)
	if utils.ContainsAny(text, "urgent", "emergency") {
		tags = append(tags, "urgent")
	}
	if utils.ContainsAny(text, "safety", "danger") {
		tags = append(tags, "safety-hazard")
	}
	if strings.Contains(text, "water") {
		tags = append(tags, "water-related")
	}
	if utils.ContainsAny(text, "traffic", "road") {
		tags = append(tags, "traffic")
	}
	if utils.ContainsAny(text, "health", "hygiene") {
		tags = append(tags, "health")
	}

	tags = append(tags, strings.ReplaceAll(strings.ToLower(string(r.ReportType)), " ", "-"))

	return dedupe(tags)
}

// Classify predicts the report type from title and description text. It is
// named after the image-classification slot it fills in the enrichment
// payload, but no image analysis happens: keyword counts per candidate
// type, highest count wins, earlier candidate kept on ties, "Other" when
// nothing matches.
func Classify(r models.Report) models.Classification {
	text := strings.ToLower(r.Title + " " + r.Description)

	maxScore := 0
	predicted := models.TypeOther

	for _, c := range classifierKeywords {
		score := utils.CountMatches(text, c.keywords)
		if score > maxScore {
			maxScore = score
			predicted = c.reportType
		}
	}

	return models.Classification{
		PredictedType: predicted,
		Confidence:    math.Min(float64(maxScore)/3*100, 100),
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func containsWord(words []string, w string) bool {
	for _, candidate := range words {
		if candidate == w {
			return true
		}
	}
	return false
}

func dedupe(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := tags[:0]
	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
