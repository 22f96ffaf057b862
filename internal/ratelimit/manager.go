package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Manager provides Redis-backed rate limiting and submission accounting
type Manager struct {
	redis *redis.Client
	// requests per minute per client; submissions get a tighter budget
	defaultRPM int
	submitRPM  int
}

// SetLimits allows tests to override the per-client limits
func (m *Manager) SetLimits(defaultRPM, submitRPM int) {
	m.defaultRPM = defaultRPM
	m.submitRPM = submitRPM
}

func NewManager(redisURL string) (*Manager, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Manager{redis: client, defaultRPM: 120, submitRPM: 10}, nil
}

func (m *Manager) Close() error { return m.redis.Close() }

// Limit returns the per-minute budget for a method and path
func (m *Manager) Limit(method, path string) int {
	if method == "POST" && path == "/v1/reports" {
		return m.submitRPM
	}
	return m.defaultRPM
}

// Keys helpers
func dayKey(t time.Time) string { return t.Format("20060102") }

// CheckRate returns allowed=false if the rate bucket is exhausted; it also returns reset seconds
func (m *Manager) CheckRate(ctx context.Context, clientID, method, path string, rpm int) (allowed bool, resetSec int, err error) {
	now := time.Now().UTC()
	window := now.Unix() / 60 // minute window
	rk := fmt.Sprintf("rl:%s:%s:%s:%d", clientID, method, path, window)
	// Use INCR and set TTL if first time
	pipe := m.redis.TxPipeline()
	incr := pipe.Incr(ctx, rk)
	pipe.Expire(ctx, rk, time.Minute)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return false, 0, err
	}
	count := int(incr.Val())
	if count > rpm {
		// compute seconds until window end
		secPassed := int(now.Unix() % 60)
		return false, 60 - secPassed, nil
	}
	return true, 0, nil
}

// IncSubmissions increments the daily submission counter for a client
func (m *Manager) IncSubmissions(ctx context.Context, clientID string, now time.Time) error {
	k := fmt.Sprintf("submissions:%s:%s", clientID, dayKey(now))
	exp := time.Until(now.Truncate(24 * time.Hour).Add(48 * time.Hour))
	pipe := m.redis.TxPipeline()
	pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, exp)
	_, err := pipe.Exec(ctx)
	return err
}

// GetSubmissions returns the current day's submission count for a client
func (m *Manager) GetSubmissions(ctx context.Context, clientID string, now time.Time) (int, error) {
	k := fmt.Sprintf("submissions:%s:%s", clientID, dayKey(now))
	val, err := m.redis.Get(ctx, k).Int()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}
