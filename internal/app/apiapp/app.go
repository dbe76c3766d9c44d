package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/dkazakova/pawmatch/backend/internal/config"
	"github.com/dkazakova/pawmatch/backend/internal/domain/enums"
	"github.com/dkazakova/pawmatch/backend/internal/jobs/reengage"
	"github.com/dkazakova/pawmatch/backend/internal/metrics"
	pgrepo "github.com/dkazakova/pawmatch/backend/internal/repo/postgres"
	redrepo "github.com/dkazakova/pawmatch/backend/internal/repo/redis"
	authsvc "github.com/dkazakova/pawmatch/backend/internal/services/auth"
	eventssvc "github.com/dkazakova/pawmatch/backend/internal/services/events"
	notifysvc "github.com/dkazakova/pawmatch/backend/internal/services/notify"
	ratesvc "github.com/dkazakova/pawmatch/backend/internal/services/rate"
	swipesvc "github.com/dkazakova/pawmatch/backend/internal/services/swipes"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	cron       *cron.Cron
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
		if err := pgrepo.Migrate(cfg.Postgres.DSN); err != nil {
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	windowRepo := redrepo.NewWindowRepo(redisClient)
	swipeRepo := pgrepo.NewSwipeRepo(pool)
	activityRepo := pgrepo.NewActivityRepo(pool)
	budgetRepo := pgrepo.NewBudgetRepo(pool)
	notificationLogRepo := pgrepo.NewNotificationLogRepo(pool)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)

	cooldowns := make(map[enums.NotificationCategory]time.Duration, len(cfg.Notify.Cooldowns))
	for name, d := range cfg.Notify.Cooldowns {
		category, ok := enums.ParseNotificationCategory(name)
		if !ok {
			return nil, fmt.Errorf("unknown notification category in cooldown config: %q", name)
		}
		cooldowns[category] = d
	}

	notifyService := notifysvc.NewService(notifysvc.Dependencies{
		Pool:      pool,
		Budgets:   budgetRepo,
		SendLog:   notificationLogRepo,
		Deliverer: notifysvc.NewLogDeliverer(log),
		Metrics:   collector,
		Logger:    log,
	}, notifysvc.Config{
		DailyCap:        cfg.Notify.DailyCap,
		WeeklyCap:       cfg.Notify.WeeklyCap,
		QuietStartHour:  cfg.Notify.QuietStartHour,
		QuietEndHour:    cfg.Notify.QuietEndHour,
		DefaultCooldown: cfg.Notify.DefaultCooldown,
		Cooldowns:       cooldowns,
		DefaultTimezone: cfg.Notify.DefaultTimezone,
	})

	rateLimiter := ratesvc.NewLimiter(
		windowRepo,
		cfg.Rate.SwipesPerMinute,
		cfg.Rate.SwipesPer10Seconds,
	)

	swipeService := swipesvc.NewService(swipesvc.Dependencies{
		Pool:        pool,
		SwipeStore:  swipeRepo,
		Matches:     swipeRepo,
		Activity:    activityRepo,
		RateLimiter: rateLimiter,
		Gate:        notifyService,
		Metrics:     collector,
		Logger:      log,
	})

	eventsService := eventssvc.NewService(eventssvc.Dependencies{
		Pool:     pool,
		Activity: activityRepo,
		Gate:     notifyService,
		Logger:   log,
	})

	scheduler := cron.New()
	reengageJob := reengage.New(activityRepo, eventsService, cfg.Jobs.InactivityThreshold, log)
	if _, err := scheduler.AddFunc(cfg.Jobs.ReengageSchedule, func() {
		if err := reengageJob.Run(context.Background()); err != nil {
			log.Error("re-engagement job failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule re-engagement job: %w", err)
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		JWTManager:    jwtManager,
		SwipeService:  swipeService,
		NotifyService: notifyService,
		EventsService: eventsService,
		Registry:      registry,
		Logger:        log,
		Config:        cfg,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		cron:       scheduler,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.cron.Start()
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	cronCtx := a.cron.Stop()
	select {
	case <-cronCtx.Done():
	case <-ctx.Done():
	}

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
