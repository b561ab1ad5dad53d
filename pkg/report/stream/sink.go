// Package stream 把报告追加到 Redis Stream，供下游消费者订阅
package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultStream = "f2p:reports"
	DefaultMaxLen = 10000
)

type Config struct {
	RedisURL string // redis://<user>:<password>@<host>:<port>/<db>
	Stream   string
	MaxLen   int64 // 近似上限，超出后 Redis 丢弃最旧的条目
}

// Sink 用 XADD 发布报告
type Sink struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewSink(cfg Config) (*Sink, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	// 启动时快速失败
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	s := &Sink{client: client, stream: cfg.Stream, maxLen: cfg.MaxLen}
	if s.stream == "" {
		s.stream = DefaultStream
	}
	if s.maxLen <= 0 {
		s.maxLen = DefaultMaxLen
	}
	return s, nil
}

func (s *Sink) Publish(ctx context.Context, id string, data []byte) error {
	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"id":     id,
			"report": data,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis xadd failed: %w", err)
	}
	return nil
}

// Len 返回流中当前的条目数
func (s *Sink) Len(ctx context.Context) (int64, error) {
	return s.client.XLen(ctx, s.stream).Result()
}

func (s *Sink) Close() error {
	return s.client.Close()
}
