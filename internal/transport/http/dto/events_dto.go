package dto

type BadgeEarnedRequest struct {
	Badge string `json:"badge"`
}

type WalkReminderRequest struct {
	Park string `json:"park"`
}
