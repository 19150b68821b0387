// internal/db/redis.go
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/onboarding"
	"github.com/redis/go-redis/v9"
)

const (
	// Recent events kept per community for the admin API
	recentEventsLimit = 100
	recentEventsTTL   = 7 * 24 * time.Hour
)

type RedisDB struct {
	Client *redis.Client
}

func NewRedisDB(redisURL string) (*RedisDB, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("[Redis] ✅ Connected to Redis")
	return &RedisDB{Client: client}, nil
}

func (r *RedisDB) Close() {
	if r.Client != nil {
		r.Client.Close()
		log.Println("[Redis] Connection closed")
	}
}

func (r *RedisDB) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// EventPublisher fans lifecycle events out over redis pub/sub and keeps a
// short per-community history.
type EventPublisher struct {
	db      *RedisDB
	channel string
}

func NewEventPublisher(db *RedisDB, channel string) *EventPublisher {
	return &EventPublisher{db: db, channel: channel}
}

func recentKey(communityID string) string {
	return "events:" + communityID
}

// Publish implements onboarding.EventSink. Failures are logged only.
func (p *EventPublisher) Publish(ctx context.Context, e onboarding.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Printf("[Redis] Error marshaling event: %v", err)
		return
	}

	key := recentKey(e.CommunityID)
	_, err = p.db.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, p.channel, data)
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, recentEventsLimit-1)
		pipe.Expire(ctx, key, recentEventsTTL)
		return nil
	})
	if err != nil {
		log.Printf("[Redis] Failed to publish %s event: %v", e.Type, err)
	}
}

// RecentEvents returns up to limit events of a community, newest first.
func (p *EventPublisher) RecentEvents(ctx context.Context, communityID string, limit int) ([]onboarding.Event, error) {
	if limit <= 0 || limit > recentEventsLimit {
		limit = recentEventsLimit
	}
	raw, err := p.db.Client.LRange(ctx, recentKey(communityID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read recent events: %w", err)
	}

	events := make([]onboarding.Event, 0, len(raw))
	for _, item := range raw {
		var e onboarding.Event
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			log.Printf("[Redis] Skipping malformed event: %v", err)
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

// Subscribe relays events published by any bot instance to sink until ctx is
// cancelled. ready is closed once the subscription is active.
func (p *EventPublisher) Subscribe(ctx context.Context, sink onboarding.EventSink, ready chan<- struct{}) error {
	sub := p.db.Client.Subscribe(ctx, p.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", p.channel, err)
	}
	if ready != nil {
		close(ready)
	}
	log.Printf("[Redis] Subscribed to %s", p.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var e onboarding.Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				log.Printf("[Redis] Skipping malformed event: %v", err)
				continue
			}
			sink.Publish(ctx, e)
		}
	}
}

var _ onboarding.EventSink = (*EventPublisher)(nil)
