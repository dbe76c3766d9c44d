package errors

import (
	"encoding/json"
	"net/http"
	"time"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RateLimitError struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	RetryAfterSec int64  `json:"retry_after_sec"`
}

// NotificationDeniedError is the payload for a gate refusal. RetryAt is the
// earliest moment the same intent could succeed; absent when no retry time
// can be derived.
type NotificationDeniedError struct {
	Code    string     `json:"code"`
	Message string     `json:"message"`
	Reason  string     `json:"reason"`
	RetryAt *time.Time `json:"retry_at,omitempty"`
}

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
