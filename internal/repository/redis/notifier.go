package redis

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/kirinyoku/staygo/internal/domain"
	"github.com/kirinyoku/staygo/internal/notify"
)

// Notifier invalidates cached calendars and publishes the change. Failures
// are logged: the write already committed and caches expire on their own.
type Notifier struct {
	cache  *Cache
	pubsub *InventoryPubSub
	log    zerolog.Logger
}

var _ notify.Notifier = (*Notifier)(nil)

func NewNotifier(cache *Cache, pubsub *InventoryPubSub, log zerolog.Logger) *Notifier {
	return &Notifier{cache: cache, pubsub: pubsub, log: log}
}

func (n *Notifier) InventoryChanged(ctx context.Context, resourceID string, r domain.DateRange, reason notify.Reason) {
	if n.cache != nil {
		if err := n.cache.InvalidateResource(ctx, resourceID); err != nil {
			n.log.Warn().Err(err).Str("resource_id", resourceID).Msg("calendar cache invalidation failed")
		}
	}

	if n.pubsub != nil {
		msg := InventoryChanged{ResourceID: resourceID, Reason: string(reason)}
		// A zero range means every day of the resource changed.
		if !r.From.IsZero() {
			msg.From = domain.DayKey(r.From)
			msg.To = domain.DayKey(r.To)
		}

		err := n.pubsub.Publish(ctx, msg)
		if err != nil {
			n.log.Warn().Err(err).Str("resource_id", resourceID).Msg("inventory change publish failed")
		}
	}
}
