package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/rueidis"

	config "taskmarket.com/engagement/internal/configs"
	"taskmarket.com/engagement/internal/events"
	"taskmarket.com/engagement/internal/queue"
	repository "taskmarket.com/engagement/internal/repositories"
	"taskmarket.com/engagement/internal/services"
)

// app holds everything the commands share once configuration is loaded.
type app struct {
	cfg   config.Config
	log   *slog.Logger
	store *repository.Store
	hub   *events.Hub
	redis rueidis.Client

	escrow        *services.EscrowService
	audit         *services.AuditService
	notifications *services.NotificationService
	tasks         *services.TaskService
	bids          *services.BidService
	bookings      *services.BookingService
	checklists    *services.ChecklistService
}

func loadConfig() config.Config {
	if err := godotenv.Load(); err != nil {
		log.Println(".env file not found, using environment variables")
	}
	return config.Load()
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func newApp(ctx context.Context, cfg config.Config) *app {
	logger := newLogger(cfg.LogLevel)
	store := repository.NewStore(config.New(cfg.DatabaseDSN))
	hub := events.NewHub()

	a := &app{cfg: cfg, log: logger, store: store, hub: hub}

	feed := events.Fanout{hub}
	var tokens queue.TokenManager = queue.NewMemoryTokenManager(cfg.NotifyQueueSize)

	if cfg.RedisEnabled {
		a.redis = config.NewRedisClient(cfg.RedisAddr)
		feed = append(feed, events.NewRedisPublisher(a.redis, cfg.RedisChannelPrefix, logger))

		redisTokens := queue.NewRedisTokenManager(a.redis, cfg.RedisQueueKey)
		if err := redisTokens.InitializeTokens(ctx, cfg.NotifyQueueSize); err != nil {
			log.Fatalf("failed to initialize redis queue tokens: %v", err)
		}
		tokens = redisTokens
	}

	a.audit = services.NewAuditService(store.Audit, logger)
	a.notifications = services.NewNotificationService(
		store.Notifications,
		tokens,
		services.NotificationConfig{
			Workers:      cfg.NotifyWorkers,
			QueueSize:    cfg.NotifyQueueSize,
			MaxAttempts:  cfg.NotifyMaxAttempts,
			RequeueEvery: time.Duration(cfg.NotifyRequeueSeconds) * time.Second,
		},
		logger,
		services.FeedDelivery{Feed: feed},
	)

	deps := services.Dependencies{
		Store:    store,
		Notifier: a.notifications,
		Auditor:  a.audit,
		Feed:     feed,
		Logger:   logger,
	}

	a.escrow = services.NewEscrowService(store, cfg.PlatformFeePercent)
	a.tasks = services.NewTaskService(deps, a.escrow)
	a.bids = services.NewBidService(deps, a.escrow)
	a.bookings = services.NewBookingService(deps, a.escrow, services.NewCancellationPolicy(cfg.Cancellation))
	a.checklists = services.NewChecklistService(deps, a.bookings)

	return a
}

func (a *app) close(ctx context.Context) {
	a.notifications.Shutdown(ctx)
	if a.redis != nil {
		a.redis.Close()
	}
}
