package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/AnshRaj112/serenify-journal/internal/config"
	"github.com/AnshRaj112/serenify-journal/internal/database"
	"github.com/AnshRaj112/serenify-journal/internal/handlers"
	"github.com/AnshRaj112/serenify-journal/internal/middleware"
	"github.com/AnshRaj112/serenify-journal/internal/routes"
	"github.com/AnshRaj112/serenify-journal/internal/services"
	"github.com/AnshRaj112/serenify-journal/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	db, err := database.ConnectPostgres(cfg.PostgresURI)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.MigratePostgres(db); err != nil {
		return err
	}

	rdb, err := database.ConnectRedis(cfg.RedisURI)
	if err != nil {
		return err
	}
	defer rdb.Close()

	mongoClient, err := database.ConnectMongo(cfg.MongoURI)
	if err != nil {
		return err
	}
	defer func() { _ = database.DisconnectMongo(mongoClient) }()

	users := services.NewUserStore(db)
	auth, err := middleware.NewAuth(services.NewSessionStore(rdb), users)
	if err != nil {
		return err
	}

	h := handlers.New(
		services.NewPostStore(db),
		services.NewAdviceStore(db),
		services.NewCacheService(rdb),
		services.NewRunHistory(mongoClient.Database(cfg.MongoDatabase)),
		services.NewLexiconScorer(),
		cfg.Boundary,
	)

	r := chi.NewRouter()
	limiter := middleware.NewIPRateLimiter(middleware.DefaultIPRate, middleware.DefaultIPBurst)
	for _, mw := range routes.Middleware(cfg.AllowedOrigins, cfg.IsProduction(), limiter, middleware.RedisRateLimit(rdb)) {
		r.Use(mw)
	}
	if cfg.IsProduction() {
		logger.Info("✅ Production security enabled (security headers, per-IP rate limiting)")
	}
	if cfg.OperatorTokenHash == "" {
		logger.Warn("⚠️  OPERATOR_TOKEN_HASH not set, operator routes are disabled")
	}
	routes.SetupRoutes(r, h, auth.RequireUser, middleware.RequireOperator(cfg.OperatorTokenHash))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🚀 Serenify journal API running", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
