package db

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	IngestQueueKey = "ideaspire:queue:ingest"
	DeadLetterKey  = "ideaspire:queue:failed"
)

func ConnectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("REDIS_URL environment variable is not set")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// Queue is a FIFO list in Redis: LPUSH on one end, BRPOP on the other.
type Queue struct {
	client *redis.Client
}

func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client}
}

func (q *Queue) Push(ctx context.Context, key string, data string) error {
	return q.client.LPush(ctx, key, data).Err()
}

// Pop blocks up to timeout. It returns redis.Nil when nothing arrived.
func (q *Queue) Pop(ctx context.Context, key string, timeout time.Duration) (string, error) {
	result, err := q.client.BRPop(ctx, timeout, key).Result()
	if err != nil {
		return "", err
	}
	return result[1], nil
}

func (q *Queue) Length(ctx context.Context, key string) (int64, error) {
	return q.client.LLen(ctx, key).Result()
}
