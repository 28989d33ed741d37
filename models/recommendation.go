package models

import (
	"regexp"
	"strings"
)

type RecommendationAction string

const (
	RecommendationActionBuy     RecommendationAction = "buy"
	RecommendationActionSell    RecommendationAction = "sell"
	RecommendationActionHold    RecommendationAction = "hold"
	RecommendationActionUnknown RecommendationAction = "unknown"
)

var verdictPattern = regexp.MustCompile(`\b(BUY|SELL|HOLD)\b`)

// DetectVerdict finds the BUY/SELL/HOLD verdict in a free-text answer.
// Upper-case mentions win over mixed case; the first match is used. The result
// only labels metrics, answers are never rejected for lacking a verdict.
func DetectVerdict(text string) RecommendationAction {
	if m := verdictPattern.FindString(text); m != "" {
		return RecommendationAction(strings.ToLower(m))
	}
	if m := verdictPattern.FindString(strings.ToUpper(text)); m != "" {
		return RecommendationAction(strings.ToLower(m))
	}
	return RecommendationActionUnknown
}
