package redis

import (
	"fmt"

	"github.com/kirinyoku/staygo/internal/domain"
)

const ns = "staygo:v1"

// KeyCalendarVersion is bumped on every inventory change of a resource; it
// is part of every cached calendar key so one INCR invalidates all ranges.
func KeyCalendarVersion(resourceID string) string {
	return fmt.Sprintf("%s:resource:%s:calendar:ver", ns, resourceID)
}

func KeyCalendar(resourceID string, version int64, r domain.DateRange) string {
	return fmt.Sprintf("%s:resource:%s:calendar:%d:%s", ns, resourceID, version, r)
}

func KeyIdempotency(scope, key string) string {
	return fmt.Sprintf("%s:idem:%s:%s", ns, scope, key)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func ChannelInventoryChanged() string {
	return ns + ":inventory:changed"
}
