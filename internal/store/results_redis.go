package store

import (
    "context"
    "errors"
    "fmt"
    "time"

    redis "github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no report is stored under an id.
var ErrNotFound = errors.New("report not found")

const recentKey = "reports:recent"

// RedisResults keeps serialized analysis reports in Redis with a TTL.
type RedisResults struct {
    client *redis.Client
    keyNS  string
    ttl    time.Duration
}

func NewRedisResults(redisURL string, ttl time.Duration) (*RedisResults, error) {
    opt, err := redis.ParseURL(redisURL)
    if err != nil { return nil, fmt.Errorf("parse redis url: %w", err) }
    c := redis.NewClient(opt)
    if err := c.Ping(context.Background()).Err(); err != nil {
        _ = c.Close()
        return nil, fmt.Errorf("redis ping: %w", err)
    }
    if ttl <= 0 { ttl = 24 * time.Hour }
    return &RedisResults{client: c, keyNS: "report", ttl: ttl}, nil
}

func (s *RedisResults) key(id string) string { return fmt.Sprintf("%s:%s", s.keyNS, id) }

// Save stores payload under id and records id in the recent index.
func (s *RedisResults) Save(ctx context.Context, id string, payload []byte, at time.Time) error {
    pipe := s.client.TxPipeline()
    pipe.Set(ctx, s.key(id), payload, s.ttl)
    pipe.ZAdd(ctx, recentKey, redis.Z{Score: float64(at.Unix()), Member: id})
    // drop index entries whose reports have expired
    pipe.ZRemRangeByScore(ctx, recentKey, "-inf", fmt.Sprintf("(%d", at.Add(-s.ttl).Unix()))
    _, err := pipe.Exec(ctx)
    return err
}

// Load returns the payload stored under id.
func (s *RedisResults) Load(ctx context.Context, id string) ([]byte, error) {
    b, err := s.client.Get(ctx, s.key(id)).Bytes()
    if err == redis.Nil { return nil, ErrNotFound }
    return b, err
}

// Recent returns up to n report ids, newest first.
func (s *RedisResults) Recent(ctx context.Context, n int) ([]string, error) {
    if n <= 0 { n = 20 }
    return s.client.ZRevRange(ctx, recentKey, 0, int64(n-1)).Result()
}

func (s *RedisResults) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *RedisResults) Close() error { return s.client.Close() }
