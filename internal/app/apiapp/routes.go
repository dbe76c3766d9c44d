package apiapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dkazakova/pawmatch/backend/internal/config"
	"github.com/dkazakova/pawmatch/backend/internal/metrics"
	authsvc "github.com/dkazakova/pawmatch/backend/internal/services/auth"
	eventssvc "github.com/dkazakova/pawmatch/backend/internal/services/events"
	notifysvc "github.com/dkazakova/pawmatch/backend/internal/services/notify"
	swipesvc "github.com/dkazakova/pawmatch/backend/internal/services/swipes"
	"github.com/dkazakova/pawmatch/backend/internal/transport/http/handlers"
)

type Dependencies struct {
	JWTManager    *authsvc.JWTManager
	SwipeService  *swipesvc.Service
	NotifyService *notifysvc.Service
	EventsService *eventssvc.Service
	Registry      *prometheus.Registry
	Logger        *zap.Logger
	Config        config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	swipeHandler := handlers.NewSwipeHandler(deps.SwipeService)
	matchesHandler := handlers.NewMatchesHandler(deps.SwipeService)
	notificationsHandler := handlers.NewNotificationsHandler(deps.NotifyService)
	eventsHandler := handlers.NewEventsHandler(deps.EventsService)

	authMW := AuthMiddleware(deps.JWTManager, deps.Logger)
	limiterMW := NewRequestLimiter(
		deps.Config.Rate.RequestsPerMinute,
		deps.Config.Rate.RequestBurst,
	).Middleware()

	r.Get("/healthz", healthHandler.Get)
	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Registry))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMW, limiterMW)
		r.Post("/swipes", swipeHandler.Handle)
		r.Get("/matches", matchesHandler.Handle)
		r.Post("/notifications/evaluate", notificationsHandler.Evaluate)
		r.Get("/notifications/budget", notificationsHandler.BudgetStatus)
		r.Post("/events/badge", eventsHandler.BadgeEarned)
		r.Post("/events/walk-reminder", eventsHandler.WalkReminder)
	})
}
