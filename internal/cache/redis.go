package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	ratesKeyPrefix      = "finboard:rates:"
	ratesChangedChannel = "finboard:rates:changed"
)

// RedisRateCache stores exchange-rate tables keyed by base currency.
type RedisRateCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRateCache connects to addr and verifies the connection.
func NewRedisRateCache(ctx context.Context, addr string, ttl time.Duration) (*RedisRateCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisRateCache{client: client, ttl: ttl}, nil
}

// GetRates returns the cached table for base. A miss is not an error.
func (r *RedisRateCache) GetRates(ctx context.Context, base string) (map[string]decimal.Decimal, bool, error) {
	raw, err := r.client.Get(ctx, ratesKeyPrefix+base).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached rates: %w", err)
	}

	rates, err := decodeRates(raw)
	if err != nil {
		return nil, false, err
	}
	return rates, true, nil
}

func (r *RedisRateCache) SetRates(ctx context.Context, base string, rates map[string]decimal.Decimal) error {
	raw, err := encodeRates(rates)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, ratesKeyPrefix+base, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("set cached rates: %w", err)
	}
	return nil
}

// InvalidateRates drops the cached table for base and announces the change
// to every process subscribed with SubscribeRateChanges.
func (r *RedisRateCache) InvalidateRates(ctx context.Context, base string) error {
	if err := r.client.Del(ctx, ratesKeyPrefix+base).Err(); err != nil {
		return fmt.Errorf("invalidate cached rates: %w", err)
	}
	if err := r.client.Publish(ctx, ratesChangedChannel, base).Err(); err != nil {
		return fmt.Errorf("publish rate change: %w", err)
	}
	return nil
}

// SubscribeRateChanges calls fn with the base currency of every rate change
// published by any process until ctx is done.
func (r *RedisRateCache) SubscribeRateChanges(ctx context.Context, fn func(base string)) error {
	pubsub := r.client.Subscribe(ctx, ratesChangedChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to rate changes: %w", err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			fn(msg.Payload)
		}
	}
}

func (r *RedisRateCache) Close() error {
	return r.client.Close()
}

// Rates travel as decimal strings so no precision is lost in Redis.
func encodeRates(rates map[string]decimal.Decimal) ([]byte, error) {
	out := make(map[string]string, len(rates))
	for code, rate := range rates {
		out[code] = rate.String()
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode rates: %w", err)
	}
	return raw, nil
}

func decodeRates(raw []byte) (map[string]decimal.Decimal, error) {
	var in map[string]string
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	rates := make(map[string]decimal.Decimal, len(in))
	for code, s := range in {
		rate, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("decode rate %s: %w", code, err)
		}
		rates[code] = rate
	}
	return rates, nil
}
