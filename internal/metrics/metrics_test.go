package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestCounters(t *testing.T) {
	expired := holds.WithLabelValues(HoldExpired)
	before := value(t, expired)
	AddHolds(HoldExpired, 3)
	assert.Equal(t, before+3, value(t, expired))

	route := httpRequests.WithLabelValues("/holds", "201")
	beforeHTTP := value(t, route)
	IncHTTP("/holds", 201)
	assert.Equal(t, beforeHTTP+1, value(t, route))

	beforeLock := value(t, lockTimeouts)
	IncLockTimeout()
	assert.Equal(t, beforeLock+1, value(t, lockTimeouts))
}
