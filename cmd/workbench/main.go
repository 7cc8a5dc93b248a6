package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/C021025/DSASimulator-OJ/internal/config"
	handler "github.com/C021025/DSASimulator-OJ/internal/delivery/http"
	"github.com/C021025/DSASimulator-OJ/internal/pool"
	"github.com/C021025/DSASimulator-OJ/internal/repository"
	"github.com/C021025/DSASimulator-OJ/internal/repository/amqp"
	"github.com/C021025/DSASimulator-OJ/internal/repository/postgres"
	rediscache "github.com/C021025/DSASimulator-OJ/internal/repository/redis"
	"github.com/C021025/DSASimulator-OJ/internal/repository/rest"
	"github.com/C021025/DSASimulator-OJ/internal/usecase"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting workbench server")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	gin.SetMode(cfg.Server.GinMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checks := map[string]handler.HealthCheck{}

	// REST client serves queries and questions unless Postgres is configured.
	client := rest.NewClient(cfg.Judge.APIURL, cfg.Judge.Timeout, logger)
	var (
		judge     repository.JudgeService    = client
		query     repository.SubmissionQuery = client
		questions repository.QuestionService = client
	)

	if cfg.Judge.Transport == config.TransportAMQP {
		amqpJudge, err := amqp.NewJudge(cfg.RabbitMQ.URL, cfg.RabbitMQ.RPCQueue, cfg.Judge.Timeout, logger)
		if err != nil {
			logger.Fatal("Failed to connect judge RPC", zap.Error(err))
		}
		defer amqpJudge.Close()
		judge = amqpJudge
		checks["rabbitmq"] = amqpJudge.Ping
		logger.Info("Connected to RabbitMQ", zap.String("queue", cfg.RabbitMQ.RPCQueue))
	}

	if cfg.Database.URL != "" {
		dbPool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
		}
		defer dbPool.Close()

		if err := dbPool.Ping(ctx); err != nil {
			logger.Fatal("Failed to ping PostgreSQL", zap.Error(err))
		}
		readModel := postgres.NewReadModel(dbPool)
		query = readModel
		questions = readModel
		checks["postgres"] = readModel.Ping
		logger.Info("Connected to PostgreSQL")
	}

	if cfg.Redis.URL != "" {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Fatal("Failed to parse Redis URL", zap.Error(err))
		}
		rdb := redis.NewClient(redisOpts)
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("Failed to ping Redis", zap.Error(err))
		}
		cache := rediscache.NewSubmissionCache(rdb, cfg.Submission.CacheTTL)
		query = repository.NewCachedSubmissionQuery(query, cache, logger)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		logger.Info("Connected to Redis")
	}

	sessions := usecase.NewSessionRegistry(judge, query, questions, usecase.Options{
		Language:        cfg.Editor.DefaultLanguage,
		PageSize:        cfg.Submission.PageSize,
		PaneHeight:      cfg.Editor.PaneHeight,
		ConsoleHeight:   cfg.Editor.ConsoleHeight,
		PollInterval:    cfg.Submission.PollInterval,
		PollMaxAttempts: cfg.Submission.PollMaxAttempts,
	}, logger)

	actions := pool.NewActionPool(cfg.Server.ActionPoolSize, cfg.Server.ActionPoolSize*4, logger)
	actions.Start(ctx)

	router := handler.NewRouter(&handler.RouterDeps{
		Sessions:        sessions,
		Actions:         actions,
		Logger:          logger,
		RateLimitPerMin: cfg.Server.RateLimit,
		HealthChecks:    checks,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Workbench server listening",
			zap.Int("port", cfg.Server.Port),
			zap.String("judge_transport", cfg.Judge.Transport),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down workbench server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	actions.Stop()
	sessions.CloseAll()
	cancel()

	logger.Info("Workbench server stopped")
}
