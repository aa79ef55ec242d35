package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"notehd/internal/storage"

	"github.com/redis/go-redis/v9"
)

const stateKeyPrefix = "oauth:state:"

var ErrStateCollision = errors.New("oauth state already issued")

type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

// * SaveState remembers an issued OAuth state until ttl passes (atomic via SETNX)
func (r *RedisRepo) SaveState(ctx context.Context, state string, ttl time.Duration) error {
	const op = "storage.redis.SaveState"

	ok, err := r.client.SetNX(ctx, stateKeyPrefix+state, time.Now().Unix(), ttl).Result()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if !ok {
		return fmt.Errorf("%s: %w", op, ErrStateCollision)
	}

	return nil
}

// * ConsumeState deletes the state; a second call for the same value fails
func (r *RedisRepo) ConsumeState(ctx context.Context, state string) error {
	const op = "storage.redis.ConsumeState"

	err := r.client.GetDel(ctx, stateKeyPrefix+state).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return storage.ErrStateNotFound
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// * Close closes the connection pool
func (r *RedisRepo) Close() {
	r.client.Close()
}
