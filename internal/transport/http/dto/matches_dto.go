package dto

import "time"

type MatchItem struct {
	PeerID    int64     `json:"peer_id"`
	MatchedAt time.Time `json:"matched_at"`
}

type MatchesResponse struct {
	Matches []MatchItem `json:"matches"`
}
