// Package cache wraps Redis: unread counters, notification inboxes,
// recent chat history, and the per-user chat streams feeding the live
// gateway.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	inboxCap       = 100
	chatHistoryCap = 50
)

// Client is the relay's Redis surface.
type Client struct {
	rdb *redis.Client
}

// NewFromURL connects using a redis:// URL.
func NewFromURL(rawURL string) (*Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Client{rdb: redis.NewClient(opts)}, nil
}

// New wraps an existing client. Tests use this with miniredis.
func New(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// IncrementUnread bumps the user's total counter and, when the
// notification is platform-scoped, the per-platform counter.
func (c *Client) IncrementUnread(ctx context.Context, user string, platformID *string) error {
	if err := c.rdb.Incr(ctx, unreadKey(user)).Err(); err != nil {
		return fmt.Errorf("incr unread: %w", err)
	}
	if platformID != nil && *platformID != "" {
		if err := c.rdb.Incr(ctx, unreadPlatformKey(user, *platformID)).Err(); err != nil {
			return fmt.Errorf("incr platform unread: %w", err)
		}
	}
	return nil
}

// DecrementUnread decrements with a non-negative floor.
func (c *Client) DecrementUnread(ctx context.Context, user string, platformID *string) error {
	if err := c.decrFloor(ctx, unreadKey(user)); err != nil {
		return err
	}
	if platformID != nil && *platformID != "" {
		return c.decrFloor(ctx, unreadPlatformKey(user, *platformID))
	}
	return nil
}

func (c *Client) decrFloor(ctx context.Context, key string) error {
	val, err := c.rdb.Decr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("decr %s: %w", key, err)
	}
	if val < 0 {
		return c.rdb.Set(ctx, key, 0, 0).Err()
	}
	return nil
}

// UnreadCount returns the user's total unread counter (0 when unset).
func (c *Client) UnreadCount(ctx context.Context, user string) (int64, error) {
	val, err := c.rdb.Get(ctx, unreadKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get unread: %w", err)
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse unread counter: %w", err)
	}
	return n, nil
}

// UnreadCountsByPlatform scans the user's per-platform counters.
func (c *Client) UnreadCountsByPlatform(ctx context.Context, user string) (map[string]int64, error) {
	prefix := unreadKey(user) + ":"
	counts := make(map[string]int64)

	iter := c.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		val, err := c.rdb.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", key, err)
		}
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			continue
		}
		counts[strings.TrimPrefix(key, prefix)] = n
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan unread counters: %w", err)
	}
	return counts, nil
}

// PushInbox prepends a rendered notification to the user's inbox list,
// keeping the most recent entries only.
func (c *Client) PushInbox(ctx context.Context, user string, payload []byte) error {
	key := inboxKey(user)
	if err := c.rdb.LPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("push inbox: %w", err)
	}
	return c.rdb.LTrim(ctx, key, 0, inboxCap-1).Err()
}

// PushChatHistory prepends a plaintext chat entry to the conversation's
// recent-history list, keeping the most recent entries only.
func (c *Client) PushChatHistory(ctx context.Context, conversationID string, payload []byte) error {
	key := chatKey(conversationID)
	if err := c.rdb.LPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("push chat history: %w", err)
	}
	return c.rdb.LTrim(ctx, key, 0, chatHistoryCap-1).Err()
}

// StreamEntry is one chat stream record.
type StreamEntry struct {
	ID   string
	Data []byte
}

// AppendChatStream appends a record to the recipient's chat stream under
// the single field "data".
func (c *Client) AppendChatStream(ctx context.Context, user string, payload []byte) error {
	err := c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: chatStreamKey(user),
		Values: map[string]any{"data": payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("append chat stream: %w", err)
	}
	return nil
}

// ReadChatStream blocks up to the given duration for entries after
// lastID. Returns an empty slice on timeout.
func (c *Client) ReadChatStream(ctx context.Context, user, lastID string, block time.Duration) ([]StreamEntry, error) {
	streams, err := c.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{chatStreamKey(user), lastID},
		Block:   block,
		Count:   64,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read chat stream: %w", err)
	}

	var entries []StreamEntry
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			entry := StreamEntry{ID: msg.ID}
			if raw, ok := msg.Values["data"]; ok {
				if s, ok := raw.(string); ok {
					entry.Data = []byte(s)
				}
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}
