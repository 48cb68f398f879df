package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/alexanxin/ideaspire-sub000/db"
	"github.com/alexanxin/ideaspire-sub000/internal/batch"
	"github.com/alexanxin/ideaspire-sub000/internal/config"
	"github.com/alexanxin/ideaspire-sub000/internal/ingest"
	"github.com/alexanxin/ideaspire-sub000/internal/ratelimit"
	"github.com/alexanxin/ideaspire-sub000/internal/repository"
	"github.com/alexanxin/ideaspire-sub000/internal/research"
	"github.com/alexanxin/ideaspire-sub000/internal/state"
	"github.com/alexanxin/ideaspire-sub000/pkg/llm"
	"github.com/alexanxin/ideaspire-sub000/pkg/social"
)

const (
	pipelineStateFile = "data/research-pipeline-state.json"
	pipelineStateKey  = "ideaspire:state:pipeline"
)

func main() {
	reset := flag.Bool("reset", false, "clear saved progress and research every category again")
	flag.Parse()

	godotenv.Load()

	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("error connecting to DB: %v", err)
	}
	defer database.Close()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = db.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("redis unavailable, ideas will be ingested directly", "error", err)
		} else {
			defer redisClient.Close()
		}
	}

	gen := cfg.Generator(logger)
	if gen == nil {
		slog.Error("no LLM API key configured")
		return
	}

	redditSchedCfg := cfg.RedditScheduler()
	redditSchedCfg.Classifier = social.ClassifyReddit
	twitterSchedCfg := cfg.TwitterScheduler()
	twitterSchedCfg.Classifier = social.ClassifyTwitter

	reddit := social.NewRedditClient(social.RedditConfig{
		ClientID:     cfg.Reddit.ClientID,
		ClientSecret: cfg.Reddit.ClientSecret,
		UserAgent:    cfg.Reddit.UserAgent,
	})
	twitter := social.NewTwitterClient(social.TwitterConfig{BearerToken: cfg.Twitter.BearerToken})

	aggregator := research.NewAggregator(
		research.NewCollector(reddit, ratelimit.New(redditSchedCfg, ratelimit.WithLogger(logger)), gen, cfg.RedditCollector(), logger),
		research.NewCollector(twitter, ratelimit.New(twitterSchedCfg, ratelimit.WithLogger(logger)), gen, cfg.TwitterCollector(), logger),
		logger,
	)

	// One category at a time; the social schedulers do their own pacing.
	pipeline := ratelimit.New(ratelimit.Config{
		Name:        "pipeline",
		Window:      time.Hour,
		MaxRequests: 60,
		MaxRetries:  0,
	}, ratelimit.WithLogger(logger))

	store := state.New(ctx, state.Options{
		Path:   pipelineStateFile,
		Redis:  redisClient,
		Key:    pipelineStateKey,
		Logger: logger,
	})
	processor := batch.NewProcessor(pipeline, store, logger)

	if *reset {
		processor.Reset(ctx)
		slog.Info("pipeline state cleared")
	}

	researchRepo := repository.NewResearchRepository(database)
	ideaRepo := repository.NewIdeaRepository(database)
	ideas := llm.NewIdeaGenerator(gen)
	gate := ingest.NewGate(ideaRepo, cfg.Dedup.Threshold, cfg.Weights(), logger)

	var queue *db.Queue
	if redisClient != nil {
		queue = db.NewQueue(redisClient)
	}

	build := func(category string) ratelimit.Call {
		return func(ctx context.Context) (any, error) {
			res := aggregator.GetCombinedResearch(ctx, category)
			if _, err := researchRepo.SaveSnapshot(ctx, category, res); err != nil {
				slog.Error("error saving research snapshot", "category", category, "error", err)
			}

			generated, err := ideas.Generate(ctx, category, res.Trends)
			if err != nil {
				return nil, err
			}

			job := ingest.Job{Topic: category, Ideas: generated, CreatedAt: time.Now()}
			if queue != nil {
				data, err := job.Encode()
				if err != nil {
					return nil, err
				}
				if err := queue.Push(ctx, db.IngestQueueKey, data); err != nil {
					return nil, err
				}
				return map[string]any{"trends": len(res.Trends), "queued": len(generated)}, nil
			}

			report, err := gate.Ingest(ctx, generated)
			if err != nil {
				return nil, err
			}
			return map[string]any{"trends": len(res.Trends), "inserted": len(report.Inserted), "duplicates": len(report.Duplicates)}, nil
		}
	}

	outcome, err := processor.ProcessAll(ctx, cfg.Categories, build)
	if err != nil {
		slog.Warn("research run interrupted", "error", err, "remaining", outcome.State.RemainingCategories)
		return
	}

	var failed int
	for _, r := range outcome.State.Results {
		if !r.Success {
			failed++
		}
	}

	slog.Info("research run complete",
		"attempted", len(outcome.Attempted),
		"completed", len(outcome.State.CompletedCategories),
		"failed", failed,
		"store", store.Kind(),
	)
}
