package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/staygo/internal/domain"
)

func TestBrokerDeliversPerResource(t *testing.T) {
	b := NewBroker(1)

	room, cancelRoom := b.Subscribe("room")
	suite, cancelSuite := b.Subscribe("suite")
	defer cancelSuite()

	r, err := domain.ParseDateRange("2024-08-01", "2024-08-03")
	require.NoError(t, err)

	b.InventoryChanged(context.Background(), "room", r, ReasonBlocked)

	got := <-room
	assert.Equal(t, "room", got.ResourceID)
	assert.Equal(t, "2024-08-01", got.From)
	assert.Equal(t, "2024-08-03", got.To)
	assert.Equal(t, "blocked", got.Reason)
	assert.Empty(t, suite)

	// A full buffer drops instead of blocking.
	b.Publish(Change{ResourceID: "room"})
	b.Publish(Change{ResourceID: "room"})
	assert.Len(t, room, 1)

	assert.Equal(t, 1, b.Subscribers("room"))
	cancelRoom()
	cancelRoom()
	assert.Zero(t, b.Subscribers("room"))

	b.InventoryChanged(context.Background(), "room", domain.DateRange{}, ReasonActiveChanged)
}

func TestOrNop(t *testing.T) {
	assert.Equal(t, Nop{}, OrNop(nil))

	b := NewBroker(0)
	assert.Same(t, b, OrNop(b))
}
