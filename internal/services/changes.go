package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// ChangeKind names what changed
type ChangeKind string

const (
	ChangeSubmission ChangeKind = "submission"
	ChangeChallenge  ChangeKind = "challenge"
)

// Change tells the realtime feed which snapshots to refresh
type Change struct {
	Kind        ChangeKind `json:"kind"`
	ChallengeID string     `json:"challenge_id"`
	AthleteID   string     `json:"athlete_id,omitempty"`
	AuthorID    string     `json:"author_id,omitempty"`
}

// Publisher announces changes after they are committed
type Publisher interface {
	Publish(ctx context.Context, change Change) error
}

// ChangeBus delivers published changes to a single consumer
type ChangeBus interface {
	Publisher
	// Run calls handle for every change until ctx is done
	Run(ctx context.Context, handle func(context.Context, Change)) error
}

// publish logs instead of failing the caller: the write it reports is
// already committed
func publish(ctx context.Context, p Publisher, change Change) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, change); err != nil {
		log.Warn().Err(err).
			Str("kind", string(change.Kind)).
			Str("challenge_id", change.ChallengeID).
			Msg("Failed to publish change")
	}
}

// LocalBus is an in-process change bus for a single replica
type LocalBus struct {
	changes chan Change
}

// NewLocalBus creates an in-process bus holding up to size undelivered
// changes
func NewLocalBus(size int) *LocalBus {
	return &LocalBus{changes: make(chan Change, size)}
}

// Publish queues a change. It never blocks; a full queue drops the change.
func (b *LocalBus) Publish(_ context.Context, change Change) error {
	select {
	case b.changes <- change:
		return nil
	default:
		return fmt.Errorf("change bus full, dropped %s change for %s", change.Kind, change.ChallengeID)
	}
}

// Run delivers queued changes until ctx is done
func (b *LocalBus) Run(ctx context.Context, handle func(context.Context, Change)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case change := <-b.changes:
			handle(ctx, change)
		}
	}
}

// RedisBus fans changes out to every replica over Redis pub/sub
type RedisBus struct {
	client  *redis.Client
	channel string
}

// NewRedisBus creates a bus on the given Redis channel
func NewRedisBus(client *redis.Client, channel string) *RedisBus {
	return &RedisBus{client: client, channel: channel}
}

// Publish sends a change to every subscribed replica
func (b *RedisBus) Publish(ctx context.Context, change Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

// Run subscribes to the channel and delivers changes until ctx is done
func (b *RedisBus) Run(ctx context.Context, handle func(context.Context, Change)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}
	log.Info().Str("channel", b.channel).Msg("Subscribed to change bus")

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				log.Error().Err(err).Str("payload", msg.Payload).Msg("Failed to decode change")
				continue
			}
			handle(ctx, change)
		}
	}
}
