package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/swarmchat-backend/internal/logger"
)

// Publisher is what the engine and services publish events through. The redis
// bridge implements it; every process's subscriber picks the events back up
// and replays them into its local hub, so a broadcast from any process reaches
// every connected client in the fleet.
type Publisher interface {
	PublishToSubgroup(ctx context.Context, subgroupID uuid.UUID, event string, data any) error
	PublishToSession(ctx context.Context, sessionID uuid.UUID, event string, data any) error
}

const (
	subgroupChannelPrefix = "subgroup:"
	sessionChannelPrefix  = "session:"
)

type RedisBridge struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewRedisBridge(log *logger.Logger, rdb *goredis.Client) *RedisBridge {
	return &RedisBridge{
		log: log.With("service", "RedisBridge"),
		rdb: rdb,
	}
}

func (b *RedisBridge) PublishToSubgroup(ctx context.Context, subgroupID uuid.UUID, event string, data any) error {
	return b.publish(ctx, subgroupChannelPrefix+subgroupID.String(), event, data)
}

func (b *RedisBridge) PublishToSession(ctx context.Context, sessionID uuid.UUID, event string, data any) error {
	return b.publish(ctx, sessionChannelPrefix+sessionID.String(), event, data)
}

func (b *RedisBridge) publish(ctx context.Context, channel, event string, data any) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis bridge not initialized")
	}
	raw, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channel, raw).Err()
}

// StartForwarder subscribes to every subgroup and session channel and replays
// received events into the local hub. Each process runs exactly one forwarder.
func (b *RedisBridge) StartForwarder(ctx context.Context, hub *Hub) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis bridge not initialized")
	}
	if hub == nil {
		return fmt.Errorf("hub required")
	}

	sub := b.rdb.PSubscribe(ctx, subgroupChannelPrefix+"*", sessionChannelPrefix+"*")

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis psubscribe: %w", err)
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
				b.forward(m.Channel, []byte(m.Payload), hub)
			}
		}
	}()

	b.log.Info("redis forwarder started", "patterns", subgroupChannelPrefix+"*, "+sessionChannelPrefix+"*")
	return nil
}

func (b *RedisBridge) forward(channel string, payload []byte, hub *Hub) {
	var envelope Envelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		b.log.Warn("bad bus payload", "channel", channel, "error", err)
		return
	}

	switch {
	case strings.HasPrefix(channel, subgroupChannelPrefix):
		id, err := uuid.Parse(strings.TrimPrefix(channel, subgroupChannelPrefix))
		if err != nil {
			b.log.Warn("bad subgroup channel", "channel", channel, "error", err)
			return
		}
		hub.BroadcastToSubgroup(id, envelope.Event, envelope.Data)
	case strings.HasPrefix(channel, sessionChannelPrefix):
		id, err := uuid.Parse(strings.TrimPrefix(channel, sessionChannelPrefix))
		if err != nil {
			b.log.Warn("bad session channel", "channel", channel, "error", err)
			return
		}
		hub.BroadcastToSession(id, envelope.Event, envelope.Data)
	}
}
