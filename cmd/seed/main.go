package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/spf13/cobra"

	"github.com/weiawesome/plantpal/internal/clock"
	"github.com/weiawesome/plantpal/internal/config"
	"github.com/weiawesome/plantpal/internal/domain"
	"github.com/weiawesome/plantpal/internal/events"
	"github.com/weiawesome/plantpal/internal/media"
	"github.com/weiawesome/plantpal/internal/repository"
	"github.com/weiawesome/plantpal/internal/search"
	"github.com/weiawesome/plantpal/internal/service"
	"github.com/weiawesome/plantpal/internal/store"
	"github.com/weiawesome/plantpal/pkg/database"
	pkglog "github.com/weiawesome/plantpal/pkg/log"
	"github.com/weiawesome/plantpal/pkg/storage"
)

var plants = []string{
	"Monstera", "Fern", "Pothos", "Snake plant", "Fiddle leaf fig", "Aloe",
	"Cactus", "Orchid", "Peace lily", "Calathea", "Philodendron", "Succulent",
}

type seedOptions struct {
	users       int
	posts       int
	followRatio float64
	seed        uint64
}

func main() {
	opts := seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the configured database with fake users, follows and posts",
		Long: `Creates users, follow edges and text-only posts through the service
layer, so caches, events and search indexing behave as they do for real
requests. Configuration is read the same way as the API server.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.users, "users", 20, "number of users to create")
	cmd.Flags().IntVar(&opts.posts, "posts", 100, "number of posts to create")
	cmd.Flags().Float64Var(&opts.followRatio, "follow-ratio", 0.3, "probability that one user follows another")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "random seed, 0 picks one")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts seedOptions) error {
	if opts.users < 1 {
		return fmt.Errorf("--users must be at least 1")
	}
	if opts.followRatio < 0 || opts.followRatio > 1 {
		return fmt.Errorf("--follow-ratio must be between 0 and 1")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	pkglog.Init(pkglog.Config{Level: cfg.Log.Level, Format: pkglog.FormatConsole, Service: "plantpal-seed"})
	logger := pkglog.L()
	ctx = pkglog.WithLogger(ctx, logger)

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
		LogLevel:        "silent",
	}, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer database.Close(db)
	if err := database.AutoMigrate(db, domain.Models()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	redisStore, err := store.NewRedisFollowStore(cfg.Redis, cfg.Cache)
	if err != nil {
		return err
	}
	defer redisStore.Close()

	userRepo := repository.NewGormUserRepository(db, cfg.Database.QueryTimeout)
	followRepo := repository.NewGormFollowRepository(db, cfg.Database.QueryTimeout)
	postRepo := repository.NewGormPostRepository(db, cfg.Database.QueryTimeout)
	commentRepo := repository.NewGormCommentRepository(db, cfg.Database.QueryTimeout)

	objectStorage, err := storage.New(ctx, cfg.Storage.Driver, cfg.Storage.Local, cfg.Storage.S3)
	if err != nil {
		return err
	}
	index, err := search.New(cfg.Search, postRepo)
	if err != nil {
		return err
	}

	clk := clock.NewRealClock()
	retry := service.NewRetryPolicy(cfg.Store)
	publisher := events.NewLocalPublisher(nil)
	graph := service.NewSocialGraphService(userRepo, followRepo, redisStore, publisher, clk, retry, cfg.Cache.FollowingTTL)
	publisher.SetHandler(graph)
	users := service.NewUserService(userRepo, followRepo, graph, retry)
	posts := service.NewPostService(service.PostDeps{
		Users:     userRepo,
		Posts:     postRepo,
		Comments:  commentRepo,
		Images:    media.NewImageStore(objectStorage, media.NewProcessor(cfg.Media)),
		Index:     index,
		Publisher: publisher,
		Clock:     clk,
		Retry:     retry,
	}, cfg.Feed)

	seed := opts.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	faker := gofakeit.New(seed)
	start := time.Now()

	ids := make([]string, 0, opts.users)
	for i := 0; i < opts.users; i++ {
		id := fmt.Sprintf("%s-%d", faker.Username(), i)
		if _, err := users.RegisterUser(ctx, id, faker.Email()); err != nil {
			return fmt.Errorf("register %s: %w", id, err)
		}
		ids = append(ids, id)
	}

	threshold := int(opts.followRatio * 100)
	follows := 0
	for _, follower := range ids {
		for _, target := range ids {
			if follower == target || faker.IntRange(0, 99) >= threshold {
				continue
			}
			if err := graph.Follow(ctx, follower, target); err != nil {
				return fmt.Errorf("follow %s -> %s: %w", follower, target, err)
			}
			follows++
		}
	}

	for i := 0; i < opts.posts; i++ {
		author := ids[faker.IntRange(0, len(ids)-1)]
		plant := plants[faker.IntRange(0, len(plants)-1)]
		_, err := posts.CreatePost(ctx, &domain.CreatePostInput{
			AuthorID: author,
			Title:    fmt.Sprintf("%s %s", faker.Adjective(), plant),
			Caption:  faker.Phrase(),
		})
		if err != nil {
			return fmt.Errorf("create post: %w", err)
		}
	}

	logger.Info().
		Int("users", len(ids)).
		Int("follows", follows).
		Int("posts", opts.posts).
		Uint64("seed", seed).
		Dur("took", time.Since(start)).
		Msg("seed completed")
	return nil
}
