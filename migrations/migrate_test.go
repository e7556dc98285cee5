package migrations_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/staygo/internal/testutil"
	"github.com/kirinyoku/staygo/migrations"
)

func TestApplyIsIdempotent(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()

	require.NoError(t, migrations.Apply(ctx, pool))

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
	require.GreaterOrEqual(t, count, 1)

	require.NoError(t, migrations.Apply(ctx, pool))

	var again int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&again))
	require.Equal(t, count, again)
}
