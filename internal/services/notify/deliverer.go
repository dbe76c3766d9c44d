package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/dkazakova/pawmatch/backend/internal/domain/enums"
)

// LogDeliverer is the default delivery channel: it records the hand-off and
// nothing else. Real push transport lives outside this service and plugs in
// through the Deliverer interface.
type LogDeliverer struct {
	logger *zap.Logger
}

func NewLogDeliverer(logger *zap.Logger) *LogDeliverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDeliverer{logger: logger}
}

func (d *LogDeliverer) Deliver(_ context.Context, userID int64, category enums.NotificationCategory, payload map[string]any) {
	d.logger.Info("notification handed off",
		zap.Int64("user_id", userID),
		zap.String("category", string(category)),
		zap.Int("payload_fields", len(payload)),
	)
}
