package queue

import (
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// RedisOptions accepts either a redis:// URL or a bare host:port and returns
// matching options for the asynq broker and the go-redis probe client.
func RedisOptions(uri string) (asynq.RedisClientOpt, *redis.Options, error) {
	if uri == "" {
		return asynq.RedisClientOpt{}, nil, fmt.Errorf("redis uri is empty")
	}
	if !strings.Contains(uri, "://") {
		uri = "redis://" + uri
	}

	opts, err := redis.ParseURL(uri)
	if err != nil {
		return asynq.RedisClientOpt{}, nil, fmt.Errorf("parsing redis uri: %w", err)
	}

	return asynq.RedisClientOpt{
		Addr:      opts.Addr,
		Username:  opts.Username,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	}, opts, nil
}
