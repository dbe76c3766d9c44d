package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dkazakova/pawmatch/backend/internal/domain/enums"
	"github.com/dkazakova/pawmatch/backend/internal/domain/model"
	authsvc "github.com/dkazakova/pawmatch/backend/internal/services/auth"
	notifysvc "github.com/dkazakova/pawmatch/backend/internal/services/notify"
	"github.com/dkazakova/pawmatch/backend/internal/transport/http/dto"
	httperrors "github.com/dkazakova/pawmatch/backend/internal/transport/http/errors"
)

type NotificationsHandler struct {
	service *notifysvc.Service
}

func NewNotificationsHandler(service *notifysvc.Service) *NotificationsHandler {
	return &NotificationsHandler{service: service}
}

// Evaluate runs an intent through the gate on behalf of the authenticated
// user. A deny is reported with 429 and the reason, not as an error.
func (h *NotificationsHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "NOTIFY_SERVICE_UNAVAILABLE", "notification service is unavailable")
		return
	}

	var req dto.NotificationEvaluateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Category) == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "category is required")
		return
	}

	decision, err := h.service.Evaluate(r.Context(), model.NotificationIntent{
		UserID:   identity.UserID,
		Category: enums.NotificationCategory(req.Category),
		Payload:  req.Payload,
	})
	if err != nil {
		switch {
		case errors.Is(err, notifysvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid notification intent")
		case errors.Is(err, notifysvc.ErrUnknownCategory):
			writeBadRequest(w, "UNKNOWN_CATEGORY", "unknown notification category")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to evaluate notification")
		}
		return
	}

	if !decision.Allowed {
		httperrors.Write(w, http.StatusTooManyRequests, httperrors.NotificationDeniedError{
			Code:    "NOTIFICATION_DENIED",
			Message: "notification suppressed by budget gate",
			Reason:  string(decision.Reason),
			RetryAt: decision.RetryAfter,
		})
		return
	}

	httperrors.Write(w, http.StatusOK, dto.NotificationDecisionResponse{
		Allowed:        true,
		NotificationID: decision.NotificationID,
	})
}

// BudgetStatus reports the caller's remaining daily and weekly allowance.
func (h *NotificationsHandler) BudgetStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "NOTIFY_SERVICE_UNAVAILABLE", "notification service is unavailable")
		return
	}

	status, err := h.service.BudgetStatus(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, notifysvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid budget request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load notification budget")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.BudgetStatusResponse{
		DailyRemaining:    status.DailyRemaining,
		WeeklyRemaining:   status.WeeklyRemaining,
		NextQuietHoursEnd: status.NextQuietHoursEnd,
	})
}
