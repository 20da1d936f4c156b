package core

import "strings"

// Sentiment is the triage-detected emotional tone of a report description.
type Sentiment string

const (
	SentimentPositive   Sentiment = "positive"
	SentimentNeutral    Sentiment = "neutral"
	SentimentNegative   Sentiment = "negative"
	SentimentDistressed Sentiment = "distressed"
)

// Keyword tables for best-effort triage. Order matters for categorization:
// the first matching category wins.
var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryHarassment, []string{"harassment", "harassed", "stalking", "unwanted", "inappropriate"}},
	{CategoryAssault, []string{"assault", "attack", "violence", "physical", "fight", "battery"}},
	{CategoryTheft, []string{"theft", "stolen", "robbery", "burglary", "missing", "lost"}},
	{CategoryVandalism, []string{"vandalism", "damage", "broken", "destroyed", "graffiti"}},
	{CategorySuspiciousActivity, []string{"suspicious", "strange", "weird", "odd", "unusual"}},
	{CategoryEmergency, []string{"emergency", "urgent", "critical", "danger", "help"}},
	{CategorySafetyHazard, []string{"hazard", "dangerous", "unsafe", "risk", "accident"}},
	{CategoryDiscrimination, []string{"discrimination", "racist", "sexist", "bias", "prejudice"}},
	{CategoryBullying, []string{"bullying", "bullied", "intimidation", "threat"}},
}

var (
	distressedWords = []string{"emergency", "urgent", "critical", "danger", "help", "panic", "terrified"}
	negativeWords   = []string{"scared", "afraid", "terrified", "worried", "concerned", "fear"}
	positiveWords   = []string{"safe", "resolved", "helpful", "good", "fine", "okay"}
)

var highPriorityCategories = map[Category]bool{
	CategoryAssault:      true,
	CategoryEmergency:    true,
	CategorySafetyHazard: true,
}

var mediumPriorityCategories = map[Category]bool{
	CategoryHarassment:         true,
	CategoryTheft:              true,
	CategorySuspiciousActivity: true,
}

// Triage is the result of best-effort classification of a report
// description. Triage never gates submission: when it fails or matches
// nothing the report keeps its defaults.
type Triage struct {
	Category  Category
	Sentiment Sentiment
	Priority  Priority
}

// ClassifyReport runs keyword classification over the report description
// and derives a handling priority from the detected category and sentiment.
func ClassifyReport(description string) Triage {
	category := Categorize(description)
	sentiment := AnalyzeSentiment(description)
	return Triage{
		Category:  category,
		Sentiment: sentiment,
		Priority:  ScorePriority(category, sentiment),
	}
}

// Categorize assigns an incident category from keyword matches, falling
// back to CategoryOther.
func Categorize(description string) Category {
	text := strings.ToLower(description)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.category
			}
		}
	}
	return CategoryOther
}

// AnalyzeSentiment detects the emotional tone of the description.
// Distressed outranks negative outranks positive.
func AnalyzeSentiment(description string) Sentiment {
	text := strings.ToLower(description)
	if containsAny(text, distressedWords) {
		return SentimentDistressed
	}
	if containsAny(text, negativeWords) {
		return SentimentNegative
	}
	if containsAny(text, positiveWords) {
		return SentimentPositive
	}
	return SentimentNeutral
}

// ScorePriority derives a handling priority from category and sentiment.
func ScorePriority(category Category, sentiment Sentiment) Priority {
	if highPriorityCategories[category] || sentiment == SentimentDistressed {
		return PriorityCritical
	}
	if mediumPriorityCategories[category] || sentiment == SentimentNegative {
		return PriorityHigh
	}
	return PriorityMedium
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
