// Package cache は設定値キャッシュと冪等キー管理に使う薄いRedisラッパー。
// Redis未設定（addr空）の場合は nil クライアントとして動作し、全操作がミス扱いになる。
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	SettingsTTL       = 5 * time.Minute
	IdempotencyTTL    = 24 * time.Hour
	idempotencyPrefix = "idem:"
)

type Client struct {
	rdb *redis.Client
}

// New: addr が空なら nil を返す（キャッシュなしで動作）
func New(addr, password string, db int) *Client {
	if addr == "" {
		return nil
	}
	return &Client{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("cache disabled")
	}
	return c.rdb.Ping(ctx).Err()
}

// Get: ヒットしなければ ("", false)
func (c *Client) Get(ctx context.Context, key string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if c == nil {
		return
	}
	// キャッシュ書き込み失敗は無視（本体の動作に影響させない）
	_ = c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *Client) Del(ctx context.Context, keys ...string) {
	if c == nil {
		return
	}
	_ = c.rdb.Del(ctx, keys...).Err()
}

// RememberIdempotency: Idempotency-Key に対する結果IDを記録する。
// 既に記録済みなら (既存ID, false) を返す。
func (c *Client) RememberIdempotency(ctx context.Context, key, resultID string) (string, bool) {
	if c == nil || key == "" {
		return resultID, true
	}
	k := idempotencyPrefix + key
	ok, err := c.rdb.SetNX(ctx, k, resultID, IdempotencyTTL).Result()
	if err != nil {
		return resultID, true
	}
	if ok {
		return resultID, true
	}
	prev, err := c.rdb.Get(ctx, k).Result()
	if err != nil {
		return resultID, true
	}
	return prev, false
}

// LookupIdempotency: 処理前の事前チェック用
func (c *Client) LookupIdempotency(ctx context.Context, key string) (string, bool) {
	if c == nil || key == "" {
		return "", false
	}
	v, err := c.rdb.Get(ctx, idempotencyPrefix+key).Result()
	if err != nil {
		return "", false
	}
	return v, true
}
