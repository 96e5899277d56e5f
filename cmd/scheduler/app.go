package main

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/AnshRaj112/serenify-journal/internal/advice"
	"github.com/AnshRaj112/serenify-journal/internal/aggregation"
	"github.com/AnshRaj112/serenify-journal/internal/config"
	"github.com/AnshRaj112/serenify-journal/internal/database"
	"github.com/AnshRaj112/serenify-journal/internal/observability"
	"github.com/AnshRaj112/serenify-journal/internal/scheduler"
	"github.com/AnshRaj112/serenify-journal/internal/services"
	"github.com/AnshRaj112/serenify-journal/pkg/logger"
)

// app is everything a scheduler command needs, connected and migrated.
type app struct {
	cfg       *config.Config
	scheduler *scheduler.Scheduler
	cache     *services.CacheService

	db    *sql.DB
	rdb   *redis.Client
	mongo *mongo.Client
	flush func()
}

// newApp connects every store and builds the scheduler. Any unreachable
// store is fatal.
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg, flush: func() {}}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.db, err = database.ConnectPostgres(cfg.PostgresURI); err != nil {
		return nil, err
	}
	if err = database.MigratePostgres(a.db); err != nil {
		return nil, err
	}
	if a.rdb, err = database.ConnectRedis(cfg.RedisURI); err != nil {
		return nil, err
	}
	if a.mongo, err = database.ConnectMongo(cfg.MongoURI); err != nil {
		return nil, err
	}

	history := services.NewRunHistory(a.mongo.Database(cfg.MongoDatabase))
	if err = history.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	logger.Info("✅ MongoDB run history indexes ensured")

	opts := aggregation.FleetOptions{
		Workers:    cfg.AdviceWorkers,
		PageSize:   cfg.AdviceUserPageSize,
		JobTimeout: cfg.AdviceJobTimeout,
	}
	if cfg.SentryDSN != "" {
		flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Environment, version)
		if err != nil {
			return nil, err
		}
		a.flush = flush
		opts.Reporter = observability.NewSentryReporter(nil)
		logger.Info("✅ Sentry failure reporting enabled")
	}

	if cfg.OpenAIToken == "" {
		logger.Warn("⚠️  OPENAI_API_KEY not set, generation calls will be unauthenticated")
	}
	generator := advice.NewGenerator(advice.NewOpenAIBackend(cfg.OpenAIBaseURL, cfg.OpenAIToken, cfg.OpenAIModel), cfg.AdviceTimeout)

	a.cache = services.NewCacheService(a.rdb)
	job := aggregation.NewJob(services.NewPostStore(a.db), services.NewAdviceStore(a.db), generator, cfg.Boundary).
		WithCache(a.cache)
	fleet := aggregation.NewFleet(job, services.NewUserStore(a.db), opts)

	a.scheduler = scheduler.New(fleet, scheduler.Options{
		Boundary: cfg.Boundary,
		Recorder: scheduler.Recorders{history, a.cache},
		Lock:     scheduler.NewRedisLock(a.rdb, scheduler.DefaultLockKey, cfg.AdviceLockTTL),
	})
	return a, nil
}

func (a *app) Close() {
	a.flush()
	if a.mongo != nil {
		if err := database.DisconnectMongo(a.mongo); err != nil {
			logger.Warn("mongo disconnect failed", zap.Error(err))
		}
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
