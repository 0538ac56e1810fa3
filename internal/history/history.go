package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/flightdeck/config"
)

const (
	channelKeyPrefix = "channel_history:"
	maxEntries       = 20
)

// Entry is one remembered query for a channel.
type Entry struct {
	Query  string    `json:"query"`
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}

// Line renders the entry as a single context line for the explainer prompt.
func (e Entry) Line() string {
	return fmt.Sprintf("[%s] %q -> %s", e.At.Format("2006-01-02 15:04"), e.Query, e.Status)
}

// History keeps a bounded per-channel ring of recent queries in Redis.
type History struct {
	client *redis.Client
}

// Conn opens and pings a Redis connection from config.
func Conn(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.Timeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// New wraps an established Redis client.
func New(client *redis.Client) *History {
	return &History{client: client}
}

// Append records a finished query for the channel and trims the ring.
func (h *History) Append(ctx context.Context, channelID string, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	key := channelKeyPrefix + channelID
	pipe := h.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, maxEntries-1)
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns up to n most recent entries for the channel, newest first.
func (h *History) Recent(ctx context.Context, channelID string, n int) ([]Entry, error) {
	if n <= 0 || n > maxEntries {
		n = maxEntries
	}
	raw, err := h.client.LRange(ctx, channelKeyPrefix+channelID, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
