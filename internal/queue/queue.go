package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"confattend/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Message represents a background job.
type Message struct {
	Type       string          `json:"type"`
	Body       json.RawMessage `json:"body"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// NewMessage encodes v as the body of a job of the given type.
func NewMessage(typ string, v any) (Message, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s job: %w", typ, err)
	}
	return Message{Type: typ, Body: b, EnqueuedAt: time.Now().UTC()}, nil
}

// Decode unmarshals the body into v.
func (m Message) Decode(v any) error {
	if err := json.Unmarshal(m.Body, v); err != nil {
		return fmt.Errorf("decode %s job: %w", m.Type, err)
	}
	return nil
}

// Queue is the abstraction over different backends.
type Queue interface {
	Publish(ctx context.Context, msg Message) error
	Consume(ctx context.Context) (<-chan Message, error)
}

// InMemory is a channel-backed queue for single-process deployments and
// tests. Jobs are lost on restart.
type InMemory struct {
	ch    chan Message
	depth prometheus.Gauge
}

func NewInMemory(size int) *InMemory {
	return &InMemory{
		ch:    make(chan Message, size),
		depth: metrics.QueueDepth.WithLabelValues("memory"),
	}
}

// Publish stamps unset enqueue times and blocks while the buffer is full.
func (q *InMemory) Publish(ctx context.Context, msg Message) error {
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = time.Now().UTC()
	}
	select {
	case q.ch <- msg:
		q.depth.Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len reports the jobs not yet handed to a consumer.
func (q *InMemory) Len() int { return len(q.ch) }

// Consume hands jobs out until ctx ends. A job taken from the buffer when
// ctx ends is put back for the next consumer.
func (q *InMemory) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			var msg Message
			select {
			case msg = <-q.ch:
			case <-ctx.Done():
				return
			}
			select {
			case out <- msg:
				q.depth.Dec()
			case <-ctx.Done():
				q.requeue(msg)
				return
			}
		}
	}()
	return out, nil
}

func (q *InMemory) requeue(msg Message) {
	select {
	case q.ch <- msg:
	default:
		slog.Warn("queue full, dropping job on shutdown", "type", msg.Type)
		q.depth.Dec()
	}
}

const defaultKey = "confattend:jobs"

// RedisQueue implements a Redis list-backed queue.
type RedisQueue struct {
	client  *redis.Client
	key     string
	timeout time.Duration
}

// NewRedisQueue builds a queue using LPUSH/BRPOP semantics.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = defaultKey
	}
	return &RedisQueue{client: client, key: key, timeout: 5 * time.Second}
}

func (q *RedisQueue) Publish(ctx context.Context, msg Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, b).Err()
}

// Consume streams messages using BRPOP until ctx ends.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, q.timeout, q.key).Result()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if !errors.Is(err, redis.Nil) {
					slog.Warn("queue pop failed", "key", q.key, "error", err)
					sleep(ctx, time.Second)
				}
				continue
			}
			if len(res) != 2 {
				continue
			}
			var msg Message
			if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
				slog.Warn("dropping undecodable job", "key", q.key, "error", err)
				continue
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
