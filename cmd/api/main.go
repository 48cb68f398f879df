package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/alexanxin/ideaspire-sub000/db"
	"github.com/alexanxin/ideaspire-sub000/internal/batch"
	"github.com/alexanxin/ideaspire-sub000/internal/config"
	"github.com/alexanxin/ideaspire-sub000/internal/handler"
	"github.com/alexanxin/ideaspire-sub000/internal/ratelimit"
	"github.com/alexanxin/ideaspire-sub000/internal/repository"
	"github.com/alexanxin/ideaspire-sub000/internal/research"
	"github.com/alexanxin/ideaspire-sub000/internal/state"
	"github.com/alexanxin/ideaspire-sub000/pkg/social"
)

func main() {

	godotenv.Load()

	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	ctx := context.Background()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("error connecting to DB: %v", err)
	}
	defer database.Close()

	stateOpts := state.Options{Path: cfg.StateFile, Logger: logger}
	if cfg.RedisURL != "" {
		redisClient, err := db.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("redis unavailable, state falls back to file storage", "error", err)
		} else {
			defer redisClient.Close()
			stateOpts.Redis = redisClient
		}
	}
	store := state.New(ctx, stateOpts)

	// Schedulers live for the whole process and are shared by every request.
	redditSchedCfg := cfg.RedditScheduler()
	redditSchedCfg.Classifier = social.ClassifyReddit
	redditScheduler := ratelimit.New(redditSchedCfg, ratelimit.WithLogger(logger))

	twitterSchedCfg := cfg.TwitterScheduler()
	twitterSchedCfg.Classifier = social.ClassifyTwitter
	twitterScheduler := ratelimit.New(twitterSchedCfg, ratelimit.WithLogger(logger))

	reddit := social.NewRedditClient(social.RedditConfig{
		ClientID:     cfg.Reddit.ClientID,
		ClientSecret: cfg.Reddit.ClientSecret,
		UserAgent:    cfg.Reddit.UserAgent,
	})
	twitter := social.NewTwitterClient(social.TwitterConfig{BearerToken: cfg.Twitter.BearerToken})

	gen := cfg.Generator(logger)
	if gen == nil {
		slog.Warn("no LLM API key configured, research will use fallback trends")
	}

	aggregator := research.NewAggregator(
		research.NewCollector(reddit, redditScheduler, gen, cfg.RedditCollector(), logger),
		research.NewCollector(twitter, twitterScheduler, gen, cfg.TwitterCollector(), logger),
		logger,
	)

	ideaRepo := repository.NewIdeaRepository(database)
	researchRepo := repository.NewResearchRepository(database)

	ideaHandler := handler.NewIdeaHandler(ideaRepo, cfg.Dedup.Threshold, cfg.Weights())
	duplicatesHandler := handler.NewDuplicatesHandler(ideaRepo, cfg.Dedup.Threshold, cfg.Weights())
	researchHandler := handler.NewResearchHandler(
		aggregator,
		batch.NewProcessor(twitterScheduler, store, logger),
		twitter,
		researchRepo,
	)

	r := gin.Default()

	allowedOrigins := []string{"http://localhost:3000"}

	if cfg.FrontendURL != "" {
		allowedOrigins = append(allowedOrigins, cfg.FrontendURL)
	}

	slog.Info("AllowOrigins URL:", "urls", allowedOrigins)

	r.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
	}))

	if cfg.DevMode {
		slog.Warn("DEV_MODE enabled, admin token check is off")
	}
	admin := handler.RequireAdminToken(cfg.AdminToken, cfg.DevMode)

	r.GET("/health", ideaHandler.GetHealth)
	r.POST("/ideas/bulk", admin, ideaHandler.BulkInsert)

	r.GET("/duplicates/remove", duplicatesHandler.GetUsage)
	r.POST("/duplicates/remove", admin, duplicatesHandler.RemoveDuplicates)

	r.GET("/research/twitter-batch", researchHandler.GetTwitterBatch)
	r.POST("/research/twitter-batch", admin, researchHandler.PostTwitterBatch)
	r.DELETE("/research/twitter-batch", admin, researchHandler.ResetTwitterBatch)
	r.GET("/research/test", researchHandler.GetTest)
	r.POST("/research/trends", researchHandler.PostTrends)
	r.GET("/research/trends/latest", researchHandler.GetLatestTrends)

	err = r.Run(":" + cfg.Port)
	if err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}
