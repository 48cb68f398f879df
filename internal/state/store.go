// Package state persists the single ProcessingState blob of a batch run.
//
// Every backend replaces the whole blob on Save; a missing blob loads as nil.
package state

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alexanxin/ideaspire-sub000/internal/model"
	"github.com/redis/go-redis/v9"
)

const DefaultPath = "data/processing-state.json"

// Store saves, loads and clears one ProcessingState. Failures are logged and
// reported as false or nil rather than returned.
type Store interface {
	Save(ctx context.Context, st *model.ProcessingState) bool
	Load(ctx context.Context) *model.ProcessingState
	Clear(ctx context.Context) bool
	Kind() string
}

// Options selects a backend in New.
type Options struct {
	Path   string
	Redis  *redis.Client
	Key    string
	Logger *slog.Logger
}

// New picks Redis when a client is given and answers PING, the file store
// when the state directory is writable, and the in-memory store otherwise.
func New(ctx context.Context, opts Options) Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.Redis != nil {
		err := opts.Redis.Ping(ctx).Err()
		if err == nil {
			logger.Info("using redis state store", "key", redisKey(opts.Key))
			return NewRedisStore(opts.Redis, opts.Key, logger)
		}
		logger.Warn("redis unavailable for state, falling back", "error", err)
	}

	path := opts.Path
	if path == "" {
		path = DefaultPath
	}

	if writable(filepath.Dir(path)) {
		logger.Info("using file state store", "path", path)
		return NewFileStore(path, logger)
	}

	logger.Warn("state directory not writable, using in-memory store", "path", path)
	return NewMemoryStore()
}

func writable(dir string) bool {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false
	}

	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}
