package model

import "time"

// Match is the unordered pair view derived from two MATCHED swipe rows.
type Match struct {
	UserAID   int64     `json:"user_a_id"`
	UserBID   int64     `json:"user_b_id"`
	CreatedAt time.Time `json:"created_at"`
}
