package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Change feed actions
const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
)

// ChangeEvent is one row-level change on an owner-scoped feed. Subscribers
// treat any event as a signal to re-fetch; the payload identifies the row so
// an incremental consumer can do better.
type ChangeEvent struct {
	Table    string    `json:"table"`
	Action   string    `json:"action"`
	RecordID string    `json:"record_id"`
	ClientID string    `json:"client_id"`
	At       time.Time `json:"at"`
}

// Publisher emits change events for UI subscribers. Publishing is
// best-effort: a down feed never fails the mutation that triggered it.
type Publisher interface {
	LeadChanged(ctx context.Context, clientID, leadID uuid.UUID, action string)
	SessionChanged(ctx context.Context, clientID, sessionID uuid.UUID, action string)
}

type redisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) Publisher {
	return &redisPublisher{client: client}
}

func (p *redisPublisher) LeadChanged(ctx context.Context, clientID, leadID uuid.UUID, action string) {
	p.publish(ctx, fmt.Sprintf("chyll:feed:leads:%s", clientID.String()), ChangeEvent{
		Table:    "leads",
		Action:   action,
		RecordID: leadID.String(),
		ClientID: clientID.String(),
		At:       time.Now().UTC(),
	})
}

func (p *redisPublisher) SessionChanged(ctx context.Context, clientID, sessionID uuid.UUID, action string) {
	p.publish(ctx, fmt.Sprintf("chyll:feed:chat_sessions:%s", clientID.String()), ChangeEvent{
		Table:    "chat_sessions",
		Action:   action,
		RecordID: sessionID.String(),
		ClientID: clientID.String(),
		At:       time.Now().UTC(),
	})
}

func (p *redisPublisher) publish(ctx context.Context, channel string, event ChangeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal change event for %s: %v", channel, err)
		return
	}
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		log.Printf("Failed to publish change event to %s: %v", channel, err)
	}
}
