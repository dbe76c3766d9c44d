package enums

import "strings"

type SwipeDecision string

const (
	SwipeDecisionLike SwipeDecision = "LIKE"
	SwipeDecisionPass SwipeDecision = "PASS"
)

func ParseSwipeDecision(input string) (SwipeDecision, bool) {
	switch SwipeDecision(strings.ToUpper(strings.TrimSpace(input))) {
	case SwipeDecisionLike:
		return SwipeDecisionLike, true
	case SwipeDecisionPass:
		return SwipeDecisionPass, true
	default:
		return "", false
	}
}

type SwipeStatus string

const (
	SwipeStatusPending SwipeStatus = "PENDING"
	SwipeStatusPassed  SwipeStatus = "PASSED"
	SwipeStatusMatched SwipeStatus = "MATCHED"
)

func (s SwipeStatus) Terminal() bool {
	return s == SwipeStatusMatched
}
