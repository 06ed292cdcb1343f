package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher delivers rendered notification text to a recipient's push
// channel and manages the channel's retained history.
type Publisher interface {
	Publish(ctx context.Context, recipientID int64, text string) error
	History(ctx context.Context, recipientID int64, limit int) ([]string, error)
	ClearHistory(ctx context.Context, recipientID int64) error
}

// Channel is the per-recipient push channel name.
func Channel(recipientID int64) string {
	return fmt.Sprintf("personal_notifications:%d", recipientID)
}

func historyKey(recipientID int64) string {
	return "history:" + Channel(recipientID)
}

// RedisPublisher publishes over Redis pub/sub and keeps the most recent
// messages of each channel in a capped list.
type RedisPublisher struct {
	client      *redis.Client
	historySize int
}

func NewRedisPublisher(client *redis.Client, historySize int) *RedisPublisher {
	if historySize <= 0 {
		historySize = 100
	}
	return &RedisPublisher{client: client, historySize: historySize}
}

func (p *RedisPublisher) Publish(ctx context.Context, recipientID int64, text string) error {
	key := historyKey(recipientID)
	pipe := p.client.TxPipeline()
	pipe.Publish(ctx, Channel(recipientID), text)
	pipe.LPush(ctx, key, text)
	pipe.LTrim(ctx, key, 0, int64(p.historySize-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish to %s: %w", Channel(recipientID), err)
	}
	return nil
}

// History returns up to limit retained messages, newest first.
func (p *RedisPublisher) History(ctx context.Context, recipientID int64, limit int) ([]string, error) {
	items, err := p.client.LRange(ctx, historyKey(recipientID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read history %s: %w", Channel(recipientID), err)
	}
	return items, nil
}

func (p *RedisPublisher) ClearHistory(ctx context.Context, recipientID int64) error {
	if err := p.client.Del(ctx, historyKey(recipientID)).Err(); err != nil {
		return fmt.Errorf("clear history %s: %w", Channel(recipientID), err)
	}
	return nil
}
