package store

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPingTimeout = 2 * time.Second

// RedisOptions selects the Redis server shared by the queue, live broker,
// zone set and token revocations.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

// Redis owns the shared client.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds a client with short per-command timeouts. Blocking reads
// (BRPOP, SUBSCRIBE) pass their own deadlines.
func NewRedis(opts RedisOptions) *Redis {
	o := &redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
	if opts.TLS {
		o.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return &Redis{Client: redis.NewClient(o)}
}

func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	return r.Client.Ping(ctx).Err() == nil
}

func (r *Redis) Shutdown() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
