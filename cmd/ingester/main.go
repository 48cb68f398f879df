package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/alexanxin/ideaspire-sub000/db"
	"github.com/alexanxin/ideaspire-sub000/internal/config"
	"github.com/alexanxin/ideaspire-sub000/internal/ingest"
	"github.com/alexanxin/ideaspire-sub000/internal/repository"
)

const (
	maxAttempts = 3
	popTimeout  = 5 * time.Second
)

func main() {

	godotenv.Load()

	cfg := config.Load()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := db.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("error connecting to Redis: %v", err)
	}
	defer redisClient.Close()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("error connecting to DB: %v", err)
	}
	defer database.Close()

	queue := db.NewQueue(redisClient)
	gate := ingest.NewGate(repository.NewIdeaRepository(database), cfg.Dedup.Threshold, cfg.Weights(), slog.Default())

	for ctx.Err() == nil {
		data, err := queue.Pop(ctx, db.IngestQueueKey, popTimeout)
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			slog.Error("error popping from Redis queue", "error", err)
			break
		}

		job, err := ingest.DecodeJob(data)
		if err != nil {
			slog.Error("invalid ingest job in queue", "error", err)
			if err := queue.Push(ctx, db.DeadLetterKey, data); err != nil {
				slog.Error("error pushing to dead letter queue, job dropped", "error", err)
			}
			continue
		}

		report, err := gate.Ingest(ctx, job.Ideas)
		if err != nil {
			slog.Error("error ingesting ideas", "topic", job.Topic, "attempts", job.Attempts+1, "error", err)

			if key, err := requeue(ctx, queue, job); err != nil {
				slog.Error("error pushing ingest job back to Redis, job dropped", "topic", job.Topic, "queue", key, "error", err)
			}

			time.Sleep(popTimeout)
			continue
		}

		slog.Info("ingest job processed",
			"topic", job.Topic,
			"inserted", len(report.Inserted),
			"duplicates", len(report.Duplicates),
		)
	}
}

// requeue pushes a failed job back for another attempt, or to the dead letter
// list once it has used maxAttempts. It returns the list it targeted.
func requeue(ctx context.Context, queue *db.Queue, job ingest.Job) (string, error) {
	job.Attempts++

	key := db.IngestQueueKey
	if job.Attempts >= maxAttempts {
		slog.Warn("ingest job exceeded max attempts, moving to dead letter", "topic", job.Topic)
		key = db.DeadLetterKey
	}

	data, err := job.Encode()
	if err != nil {
		return key, fmt.Errorf("encode job: %w", err)
	}
	if err := queue.Push(ctx, key, data); err != nil {
		return key, fmt.Errorf("push to %s: %w", key, err)
	}
	return key, nil
}
