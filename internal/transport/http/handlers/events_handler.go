package handlers

import (
	"errors"
	"net/http"
	"strings"

	authsvc "github.com/dkazakova/pawmatch/backend/internal/services/auth"
	eventssvc "github.com/dkazakova/pawmatch/backend/internal/services/events"
	notifysvc "github.com/dkazakova/pawmatch/backend/internal/services/notify"
	"github.com/dkazakova/pawmatch/backend/internal/transport/http/dto"
	httperrors "github.com/dkazakova/pawmatch/backend/internal/transport/http/errors"
)

type EventsHandler struct {
	service *eventssvc.Service
}

func NewEventsHandler(service *eventssvc.Service) *EventsHandler {
	return &EventsHandler{service: service}
}

func (h *EventsHandler) BadgeEarned(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "EVENTS_SERVICE_UNAVAILABLE", "events service is unavailable")
		return
	}

	var req dto.BadgeEarnedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Badge) == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "badge is required")
		return
	}

	decision, err := h.service.BadgeEarned(r.Context(), identity.UserID, req.Badge)
	if err != nil {
		if errors.Is(err, eventssvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid badge event")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to process badge event")
		return
	}

	writeDecision(w, decision)
}

func (h *EventsHandler) WalkReminder(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "EVENTS_SERVICE_UNAVAILABLE", "events service is unavailable")
		return
	}

	var req dto.WalkReminderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Park) == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "park is required")
		return
	}

	decision, err := h.service.WalkReminderDue(r.Context(), identity.UserID, req.Park)
	if err != nil {
		if errors.Is(err, eventssvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid walk reminder event")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to process walk reminder")
		return
	}

	writeDecision(w, decision)
}

// Event endpoints report a suppressed notification as a normal 200 outcome:
// the event itself was accepted, only the push was withheld.
func writeDecision(w http.ResponseWriter, decision notifysvc.Decision) {
	httperrors.Write(w, http.StatusOK, dto.NotificationDecisionResponse{
		Allowed:        decision.Allowed,
		NotificationID: decision.NotificationID,
		Reason:         string(decision.Reason),
		RetryAt:        decision.RetryAfter,
	})
}
