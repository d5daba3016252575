package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/brunomarket/fulfillment-backend/pkg/config"
	"github.com/brunomarket/fulfillment-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	keyNamespace  = "fulfil"
	geocodePrefix = "geocode"
)

// Client wraps the redis connection used as a hot cache in front of the
// geocode_cache table. Every method is nil-safe: a nil *Client behaves as a
// cache that always misses, so callers never need to branch on redis being
// configured.
type Client struct {
	raw *redis.Client
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// New bootstraps a Redis client with pooling/timeouts and verifies
// connectivity.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "redis connection established")
	}
	return &Client{raw: raw}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if strings.TrimSpace(cfg.URL) != "" {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		applyPoolSettings(opts, cfg)
		return opts, nil
	}
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, fmt.Errorf("redis address or url is required")
	}
	opts := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	applyPoolSettings(opts, cfg)
	return opts, nil
}

func applyPoolSettings(opts *redis.Options, cfg config.RedisConfig) {
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
}

// Ping verifies the connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.raw == nil {
		return fmt.Errorf("redis client not configured")
	}
	return c.raw.Ping(ctx).Err()
}

// Close releases the underlying pool.
func (c *Client) Close() error {
	if c == nil || c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

func geocodeKey(queryKey string) string {
	return fmt.Sprintf("%s:%s:%s", keyNamespace, geocodePrefix, queryKey)
}

// GetCoordinates reads a cached lat/lng pair. A miss, a malformed value, or
// any redis error all report ok=false.
func (c *Client) GetCoordinates(ctx context.Context, queryKey string) (lat, lng float64, ok bool) {
	if c == nil || c.raw == nil {
		return 0, 0, false
	}
	value, err := c.raw.Get(ctx, geocodeKey(queryKey)).Result()
	if err != nil {
		return 0, 0, false
	}
	parts := strings.SplitN(value, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err = strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err = strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

// SetCoordinates stores a lat/lng pair with the given TTL. Failures are
// swallowed: the hot cache must never block resolution.
func (c *Client) SetCoordinates(ctx context.Context, queryKey string, lat, lng float64, ttl time.Duration) {
	if c == nil || c.raw == nil {
		return
	}
	value := strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
	_ = c.raw.Set(ctx, geocodeKey(queryKey), value, ttl).Err()
}
