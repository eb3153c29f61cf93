// Package redisbus publishes outbound member messages on a Redis channel.
// Delivery adapters (chat platform bridges, notification workers) run in
// separate processes and subscribe to the same channel, so the engine never
// needs to know which platform a member is reached on.
package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

// Message is the wire envelope for one outbound member message.
type Message struct {
	MemberID uuid.UUID `json:"member_id"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sent_at"`
}

type Bus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewBusFromEnv connects using REDIS_ADDR and REDIS_CHANNEL. Returns
// (nil, nil) when REDIS_ADDR is unset so callers can fall back to a local
// deliverer without treating the absence as a failure.
func NewBusFromEnv(log *logger.Logger) (*Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, nil
	}
	ch := strings.TrimSpace(os.Getenv("REDIS_CHANNEL"))
	if ch == "" {
		ch = "kindred.outbound"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Bus{
		log:     log.With("service", "RedisDeliveryBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

// Deliver publishes one outbound message. Implements the engine's delivery
// contract.
func (b *Bus) Deliver(ctx context.Context, memberID uuid.UUID, text string) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("delivery bus not initialized")
	}
	raw, err := json.Marshal(Message{
		MemberID: memberID,
		Text:     text,
		SentAt:   time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// StartForwarder subscribes to the delivery channel and invokes onMsg for
// each message until ctx is cancelled. Used by adapter processes, not by the
// engine itself.
func (b *Bus) StartForwarder(ctx context.Context, onMsg func(m Message)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("delivery bus not initialized")
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var msg Message
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					b.log.Warn("bad delivery payload", "error", err)
					continue
				}
				onMsg(msg)
			}
		}
	}()

	return nil
}

func (b *Bus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
