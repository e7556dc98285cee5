package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type InventoryPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewInventoryPubSub(rdb *redis.Client) *InventoryPubSub {
	return &InventoryPubSub{
		rdb:     rdb,
		channel: ChannelInventoryChanged(),
	}
}

// InventoryChanged is the message published after a committed write.
type InventoryChanged struct {
	Type       string `json:"type"`
	ResourceID string `json:"resource_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	Reason     string `json:"reason"`
	TsUnix     int64  `json:"ts_unix"`
}

func (p *InventoryPubSub) Publish(ctx context.Context, msg InventoryChanged) error {
	msg.Type = "inventory_changed"
	if msg.TsUnix == 0 {
		msg.TsUnix = time.Now().Unix()
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe delivers messages to handler until ctx is done. Malformed
// payloads are skipped.
func (p *InventoryPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, msg InventoryChanged)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	return p.consume(ctx, sub, handler)
}

func (p *InventoryPubSub) consume(ctx context.Context, sub *redis.PubSub, handler func(ctx context.Context, msg InventoryChanged)) error {
	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev InventoryChanged
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.ResourceID != "" {
				handler(ctx, ev)
			}
		}
	}
}
