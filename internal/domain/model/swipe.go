package model

import (
	"time"

	"github.com/dkazakova/pawmatch/backend/internal/domain/enums"
)

type Swipe struct {
	FromUserID int64             `json:"from_user_id"`
	ToUserID   int64             `json:"to_user_id"`
	Status     enums.SwipeStatus `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}
