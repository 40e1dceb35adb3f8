// Package redis implements the notification event queue and the live tally
// counters on top of Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/cineclube/internal/domain"
)

// Queue carries notification events from the CRUD services to the dispatcher
// using a Redis list.
type Queue struct {
	client *redis.Client
	key    string
}

func NewQueue(client *redis.Client, key string) *Queue {
	return &Queue{
		client: client,
		key:    key,
	}
}

func (q *Queue) Publish(ctx context.Context, evt domain.NotificationEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("redis queue: marshal event: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("redis queue: enqueue event: %w", err)
	}
	return nil
}

func (q *Queue) Consume(ctx context.Context, handler func(context.Context, domain.NotificationEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// BRPOP blocks with a short timeout so the context stays honored.
		res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return fmt.Errorf("redis queue: consume event: %w", err)
		}

		if len(res) != 2 {
			continue
		}

		var evt domain.NotificationEvent
		if err := json.Unmarshal([]byte(res[1]), &evt); err != nil {
			return fmt.Errorf("redis queue: invalid payload: %w", err)
		}

		// The handler decides what to do with the event; an error stops the loop.
		if err := handler(ctx, evt); err != nil {
			return err
		}
	}
}

var _ domain.EventQueue = (*Queue)(nil)
