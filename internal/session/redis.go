package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chamu-dev/chamu/internal/domain"
)

// Redis is the production Store: rankings are stored as JSON values with the
// configured TTL, so abandoned sessions expire on their own.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis builds a redis-backed store from a redis URL
// (e.g. redis://localhost:6379/0) and verifies connectivity with a ping.
func NewRedis(ctx context.Context, redisURL string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// SaveRanking stores the ranking as JSON under the token with the store TTL.
func (r *Redis) SaveRanking(ctx context.Context, token string, ranking domain.PreferenceRanking) error {
	payload, err := json.Marshal(encodeRanking(ranking))
	if err != nil {
		return fmt.Errorf("marshal ranking: %w", err)
	}
	if err := r.client.Set(ctx, key(token), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("save ranking: %w", err)
	}
	return nil
}

// Ranking fetches and decodes the ranking for the token, or ErrNotFound.
func (r *Redis) Ranking(ctx context.Context, token string) (domain.PreferenceRanking, error) {
	payload, err := r.client.Get(ctx, key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load ranking: %w", err)
	}
	var encoded map[string]string
	if err := json.Unmarshal(payload, &encoded); err != nil {
		return nil, fmt.Errorf("decode ranking: %w", err)
	}
	return decodeRanking(encoded)
}

// Clear discards the token's ranking.
func (r *Redis) Clear(ctx context.Context, token string) error {
	return r.client.Del(ctx, key(token)).Err()
}

func key(token string) string {
	return "chamu:ranking:" + token
}

// JSON object keys must be strings, so ranks are stringified on the wire.
func encodeRanking(ranking domain.PreferenceRanking) map[string]string {
	out := make(map[string]string, len(ranking))
	for rank, criterionID := range ranking {
		out[strconv.Itoa(rank)] = criterionID
	}
	return out
}

func decodeRanking(encoded map[string]string) (domain.PreferenceRanking, error) {
	out := make(domain.PreferenceRanking, len(encoded))
	for rankStr, criterionID := range encoded {
		rank, err := strconv.Atoi(rankStr)
		if err != nil {
			return nil, fmt.Errorf("invalid rank %q in stored ranking", rankStr)
		}
		out[rank] = criterionID
	}
	return out, nil
}
