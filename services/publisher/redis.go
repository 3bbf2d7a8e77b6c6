package publisher

import (
	"context"
	"math/rand"
	"strconv"

	"github.com/redis/go-redis/v9"

	crawlerrors "sjsage522/listupjorei/pkg/errors"
)

// RedisPublisher implements Publisher using Redis streams
type RedisPublisher struct {
	client          *redis.Client
	ctx             context.Context
	streamPrefix    string
	streamCount     int
	streamMaxLength int
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(ctx context.Context, addr string, db int, streamPrefix string, streamCount int, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	if streamCount < 1 {
		streamCount = 1
	}

	return &RedisPublisher{
		client:          client,
		ctx:             ctx,
		streamPrefix:    streamPrefix,
		streamCount:     streamCount,
		streamMaxLength: streamMaxLength,
	}
}

// Ping checks that Redis is reachable
func (p *RedisPublisher) Ping() error {
	if err := p.client.Ping(p.ctx).Err(); err != nil {
		return crawlerrors.NewPublisher("redis", "ping failed", err)
	}
	return nil
}

// StreamName returns the stream for partition n.
// With streamCount 4 the streams are prefix:0 to prefix:3.
func (p *RedisPublisher) StreamName(n int) string {
	return p.streamPrefix + ":" + strconv.Itoa(n)
}

// Publish appends the message to a randomly chosen stream partition
func (p *RedisPublisher) Publish(key string, message []byte) error {
	stream := p.StreamName(rand.Intn(p.streamCount))

	err := p.client.XAdd(p.ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			key: string(message),
		},
	}).Err()
	if err != nil {
		return crawlerrors.NewPublisher("redis", "XADD "+stream+" failed", err)
	}
	return nil
}

// TrimStreams trims every partition to the configured maximum length
func (p *RedisPublisher) TrimStreams() error {
	if p.streamMaxLength <= 0 {
		return nil
	}

	for i := 0; i < p.streamCount; i++ {
		stream := p.StreamName(i)
		if err := p.client.XTrimMaxLen(p.ctx, stream, int64(p.streamMaxLength)).Err(); err != nil {
			return crawlerrors.NewPublisher("redis", "XTRIM "+stream+" failed", err)
		}
	}

	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
