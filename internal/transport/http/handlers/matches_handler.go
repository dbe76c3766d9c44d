package handlers

import (
	"errors"
	"net/http"
	"strconv"

	authsvc "github.com/dkazakova/pawmatch/backend/internal/services/auth"
	swipesvc "github.com/dkazakova/pawmatch/backend/internal/services/swipes"
	"github.com/dkazakova/pawmatch/backend/internal/transport/http/dto"
	httperrors "github.com/dkazakova/pawmatch/backend/internal/transport/http/errors"
)

const defaultMatchesLimit = 50

type MatchesHandler struct {
	service *swipesvc.Service
}

func NewMatchesHandler(service *swipesvc.Service) *MatchesHandler {
	return &MatchesHandler{service: service}
}

func (h *MatchesHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	limit := defaultMatchesLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeBadRequest(w, "VALIDATION_ERROR", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	matches, err := h.service.Matches(r.Context(), identity.UserID, limit)
	if err != nil {
		if errors.Is(err, swipesvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid matches request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to list matches")
		return
	}

	items := make([]dto.MatchItem, 0, len(matches))
	for _, match := range matches {
		peerID := match.UserAID
		if peerID == identity.UserID {
			peerID = match.UserBID
		}
		items = append(items, dto.MatchItem{
			PeerID:    peerID,
			MatchedAt: match.CreatedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.MatchesResponse{Matches: items})
}
