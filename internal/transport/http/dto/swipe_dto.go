package dto

import "time"

type SwipeRequest struct {
	TargetID int64  `json:"target_id"`
	Decision string `json:"decision"`
}

type SwipeResponse struct {
	OK           bool      `json:"ok"`
	Status       string    `json:"status"`
	MatchCreated bool      `json:"match_created"`
	SwipedAt     time.Time `json:"swiped_at"`
}
