package redisrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kirinyoku/resortbook/internal/domain"
)

type EventsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewEventsPubSub(rdb *redis.Client) *EventsPubSub {
	return &EventsPubSub{
		rdb:     rdb,
		channel: ChannelBookingEvents(),
	}
}

func (p *EventsPubSub) Publish(ctx context.Context, ev domain.BookingEvent) error {
	const op = "redisrepo.EventsPubSub.Publish"

	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.TsUnix == 0 {
		ev.TsUnix = time.Now().Unix()
	}

	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := p.rdb.Publish(ctx, p.channel, b).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Subscribe delivers events to handler until ctx is done. Malformed
// payloads are skipped.
func (p *EventsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, ev domain.BookingEvent)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redisrepo.EventsPubSub.Subscribe: %w", err)
	}

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev domain.BookingEvent
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil && ev.Type != "" {
				handler(ctx, ev)
			}
		}
	}
}

// EventClaims lets exactly one subscriber act on each published event.
type EventClaims struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewEventClaims(rdb *redis.Client, ttl time.Duration) *EventClaims {
	return &EventClaims{rdb: rdb, ttl: ttl}
}

// Claim reports whether the caller is the first to claim ev for consumer.
func (c *EventClaims) Claim(ctx context.Context, consumer string, ev domain.BookingEvent) (bool, error) {
	const op = "redisrepo.EventClaims.Claim"

	ok, err := c.rdb.SetNX(ctx, KeyEventClaim(consumer, ev.ID.String()), 1, c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return ok, nil
}
