package handlers

import (
	"errors"
	"net/http"
	"strings"

	authsvc "github.com/dkazakova/pawmatch/backend/internal/services/auth"
	swipesvc "github.com/dkazakova/pawmatch/backend/internal/services/swipes"
	"github.com/dkazakova/pawmatch/backend/internal/transport/http/dto"
	httperrors "github.com/dkazakova/pawmatch/backend/internal/transport/http/errors"
)

type SwipeHandler struct {
	service *swipesvc.Service
}

func NewSwipeHandler(service *swipesvc.Service) *SwipeHandler {
	return &SwipeHandler{service: service}
}

func (h *SwipeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	var req dto.SwipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if req.TargetID <= 0 || strings.TrimSpace(req.Decision) == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "target_id and decision are required")
		return
	}

	result, err := h.service.Swipe(r.Context(), identity.UserID, req.TargetID, req.Decision)
	if err != nil {
		switch {
		case errors.Is(err, swipesvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid swipe request")
		case errors.Is(err, swipesvc.ErrUnsupportedDecision):
			writeBadRequest(w, "VALIDATION_ERROR", "unsupported decision")
		default:
			if tf, ok := swipesvc.IsTooFast(err); ok {
				httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
					Code:          "TOO_FAST",
					Message:       "too many likes, slow down",
					RetryAfterSec: tf.RetryAfterSec,
				})
				return
			}
			writeInternal(w, "INTERNAL_ERROR", "failed to process swipe")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SwipeResponse{
		OK:           true,
		Status:       string(result.Record.Status),
		MatchCreated: result.MatchCreated,
		SwipedAt:     result.Record.CreatedAt,
	})
}
