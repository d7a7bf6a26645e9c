package zones

import (
	"context"
	"errors"
	"strconv"

	"confattend/internal/apperr"

	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 5

// Redis stores the list under one key and the version under another,
// updating both in a WATCHed transaction.
type Redis struct {
	client     *redis.Client
	listKey    string
	versionKey string
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, listKey: "confattend:zones", versionKey: "confattend:zones:version"}
}

// Seed fills an empty store with labels. An existing list is left alone.
func (r *Redis) Seed(ctx context.Context, labels []string) error {
	return r.update(ctx, func(cur Set) (func(redis.Pipeliner) error, error) {
		if cur.Version > 0 {
			return nil, nil
		}
		return func(p redis.Pipeliner) error {
			if len(labels) > 0 {
				vals := make([]any, len(labels))
				for i, l := range labels {
					vals[i] = l
				}
				p.RPush(ctx, r.listKey, vals...)
			}
			p.Set(ctx, r.versionKey, 1, 0)
			return nil
		}, nil
	})
}

func (r *Redis) List(ctx context.Context) (Set, error) {
	return r.read(ctx, r.client)
}

// listReader is the read surface shared by *redis.Client and *redis.Tx.
type listReader interface {
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *Redis) read(ctx context.Context, c listReader) (Set, error) {
	zs, err := c.LRange(ctx, r.listKey, 0, -1).Result()
	if err != nil {
		return Set{}, apperr.Transient(err)
	}
	v, err := c.Get(ctx, r.versionKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Set{}, apperr.Transient(err)
	}
	var version int64
	if v != "" {
		version, _ = strconv.ParseInt(v, 10, 64)
	}
	return Set{Version: version, Zones: zs}, nil
}

func (r *Redis) Add(ctx context.Context, label string) (Set, error) {
	l, err := validLabel(label)
	if err != nil {
		return Set{}, err
	}
	if err := r.update(ctx, func(cur Set) (func(redis.Pipeliner) error, error) {
		if cur.Contains(l) {
			return nil, apperr.Precondition("zone %q already exists", l)
		}
		return func(p redis.Pipeliner) error {
			p.RPush(ctx, r.listKey, l)
			p.Incr(ctx, r.versionKey)
			return nil
		}, nil
	}); err != nil {
		return Set{}, err
	}
	return r.List(ctx)
}

func (r *Redis) Remove(ctx context.Context, label string) (Set, error) {
	if err := r.update(ctx, func(cur Set) (func(redis.Pipeliner) error, error) {
		i := cur.index(label)
		if i < 0 {
			return nil, apperr.NotFound("zone %q not found", Normalize(label))
		}
		stored := cur.Zones[i]
		return func(p redis.Pipeliner) error {
			p.LRem(ctx, r.listKey, 1, stored)
			p.Incr(ctx, r.versionKey)
			return nil
		}, nil
	}); err != nil {
		return Set{}, err
	}
	return r.List(ctx)
}

// update runs plan against the current set inside WATCH/MULTI, retrying
// when another writer got in first. A nil pipeline func means no change.
func (r *Redis) update(ctx context.Context, plan func(Set) (func(redis.Pipeliner) error, error)) error {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			cur, err := r.read(ctx, tx)
			if err != nil {
				return err
			}
			apply, err := plan(cur)
			if err != nil || apply == nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, apply)
			return err
		}, r.listKey, r.versionKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && apperr.KindOf(err) == apperr.KindInternal {
			return apperr.Transient(err)
		}
		return err
	}
	return apperr.Transient(errors.New("zone list is busy"))
}
