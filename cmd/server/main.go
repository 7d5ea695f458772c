package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/plantpal/internal/clock"
	"github.com/weiawesome/plantpal/internal/config"
	"github.com/weiawesome/plantpal/internal/domain"
	"github.com/weiawesome/plantpal/internal/events"
	"github.com/weiawesome/plantpal/internal/handler"
	"github.com/weiawesome/plantpal/internal/media"
	"github.com/weiawesome/plantpal/internal/reconciler"
	"github.com/weiawesome/plantpal/internal/repository"
	"github.com/weiawesome/plantpal/internal/search"
	"github.com/weiawesome/plantpal/internal/service"
	"github.com/weiawesome/plantpal/internal/store"
	"github.com/weiawesome/plantpal/pkg/database"
	"github.com/weiawesome/plantpal/pkg/jwt"
	pkglog "github.com/weiawesome/plantpal/pkg/log"
	"github.com/weiawesome/plantpal/pkg/middleware"
	"github.com/weiawesome/plantpal/pkg/storage"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// 2. Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "plantpal-api",
	})
	logger := pkglog.L()

	// 3. Init DB (GORM, auto-migrate)
	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db, domain.Models()...); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database migration completed")

	// 4. Init Redis client
	redisStore, err := store.NewRedisFollowStore(cfg.Redis, cfg.Cache)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisStore.Close()
	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")

	// 5. Init object storage and search index
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	objectStorage, err := storage.New(ctx, cfg.Storage.Driver, cfg.Storage.Local, cfg.Storage.S3)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object storage")
	}
	logger.Info().Str("driver", cfg.Storage.Driver).Msg("object storage ready")

	userRepo := repository.NewGormUserRepository(db, cfg.Database.QueryTimeout)
	followRepo := repository.NewGormFollowRepository(db, cfg.Database.QueryTimeout)
	postRepo := repository.NewGormPostRepository(db, cfg.Database.QueryTimeout)
	commentRepo := repository.NewGormCommentRepository(db, cfg.Database.QueryTimeout)

	index, err := search.New(cfg.Search, postRepo)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init search index")
	}
	logger.Info().Str("driver", cfg.Search.Driver).Msg("search index ready")

	// 6. Init activity event publisher
	var (
		publisher      events.Publisher
		localPublisher *events.LocalPublisher
	)
	if cfg.Kafka.Brokers != "" {
		kp, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create kafka publisher, applying events in-process")
		} else {
			publisher = kp
			logger.Info().Str("topic", cfg.Kafka.Topic).Msg("kafka publisher ready")
		}
	} else {
		logger.Warn().Msg("KAFKA_BROKERS not configured; applying events in-process")
	}
	if publisher == nil {
		localPublisher = events.NewLocalPublisher(nil)
		publisher = localPublisher
	}

	// 7. Create services
	clk := clock.NewRealClock()
	retry := service.NewRetryPolicy(cfg.Store)
	images := media.NewImageStore(objectStorage, media.NewProcessor(cfg.Media))

	graphSvc := service.NewSocialGraphService(userRepo, followRepo, redisStore, publisher, clk, retry, cfg.Cache.FollowingTTL)
	feedSvc := service.NewFeedService(service.FeedDeps{
		Users:     userRepo,
		Posts:     postRepo,
		Comments:  commentRepo,
		Graph:     graphSvc,
		Images:    images,
		Index:     index,
		Publisher: publisher,
		Clock:     clk,
		Retry:     retry,
	}, cfg.Feed)
	postSvc := service.NewPostService(service.PostDeps{
		Users:     userRepo,
		Posts:     postRepo,
		Comments:  commentRepo,
		Images:    images,
		Index:     index,
		Publisher: publisher,
		Clock:     clk,
		Retry:     retry,
	}, cfg.Feed)
	userSvc := service.NewUserService(userRepo, followRepo, graphSvc, retry)

	// 8. Init Kafka consumer
	var kafkaConsumer *events.KafkaConsumer
	if localPublisher != nil {
		localPublisher.SetHandler(graphSvc)
	} else {
		kc, err := events.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, graphSvc)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create kafka consumer, cached counts rely on the reconciler")
		} else if err := kc.Start(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to start kafka consumer")
		} else {
			kafkaConsumer = kc
			logger.Info().Str("topic", cfg.Kafka.Topic).Msg("kafka activity consumer started")
		}
	}

	// 9. Init reconciler and start
	rec := reconciler.New(redisStore, followRepo, cfg.Reconciler)
	rec.Start(ctx)
	logger.Info().Dur("interval", cfg.Reconciler.Interval).Int("top_n", cfg.Reconciler.TopN).Msg("reconciler started")

	// 10. Create auth middleware
	var authMiddleware *middleware.AuthMiddleware
	if cfg.Auth.Mode == "jwt" {
		manager, err := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create token validator")
		}
		authMiddleware = middleware.NewAuthMiddleware(manager)
	}
	logger.Info().Str("mode", cfg.Auth.Mode).Msg("auth configured")

	// 11. Setup Gin router + HTTP server
	httpHandler := handler.NewHandler(handler.Services{
		Graph: graphSvc,
		Feed:  feedSvc,
		Posts: postSvc,
		Users: userSvc,
	}, authMiddleware, images.MaxBytes())

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))
	httpHandler.RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logger.Info().Str("addr", addr).Msg("plantpal-api starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// 12. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutdown signal received")

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		// 1. server.Shutdown(5s): drain HTTP so no new events are produced
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("HTTP server forced to shutdown")
		}

		// 2. cancel(): stop Kafka consumer loop and reconciler ticker
		cancel()

		// 3. kafkaConsumer.Close(): wait for the in-flight event
		if kafkaConsumer != nil {
			if err := kafkaConsumer.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing kafka consumer")
			}
		}

		// 4. publisher.Close(): flush pending events
		if err := publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing event publisher")
		}

		// 5. reconciler.Stop(): stop ticker; <-reconciler.Done()
		rec.Stop()
		<-rec.Done()
	}()

	select {
	case <-shutdownDone:
		logger.Info().Msg("plantpal-api stopped")
	case <-time.After(30 * time.Second):
		logger.Warn().Msg("shutdown timed out after 30s")
	}
}
