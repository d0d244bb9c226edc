package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"bounty-board/internal/history"
)

// setupTestDB starts a PostgreSQL container, applies migrations and returns
// a cleanup function.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	require.NoError(t, Migrate(ctx, pool), "failed to apply migrations")

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

func TestStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStore(pool)
	ctx := context.Background()
	actor := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	base := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("record and read back", func(t *testing.T) {
		a := &history.Activity{
			ID:        "act-1",
			Action:    history.ActionSubmit,
			BountyID:  4,
			Actor:     actor,
			TxHash:    common.HexToHash("0xabc"),
			Outcome:   history.OutcomePending,
			CreatedAt: base,
		}
		require.NoError(t, store.Record(ctx, a))

		got, err := store.ByActor(ctx, actor)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "act-1", got[0].ID)
		require.Equal(t, history.ActionSubmit, got[0].Action)
		require.Equal(t, uint64(4), got[0].BountyID)
		require.Equal(t, actor, got[0].Actor)
		require.Equal(t, history.OutcomePending, got[0].Outcome)
	})

	t.Run("duplicate id", func(t *testing.T) {
		a := &history.Activity{
			ID:        "act-1",
			Action:    history.ActionSubmit,
			Actor:     actor,
			Outcome:   history.OutcomePending,
			CreatedAt: base,
		}
		require.ErrorIs(t, store.Record(ctx, a), history.ErrDuplicateKey)
	})

	t.Run("confirm binds bounty id", func(t *testing.T) {
		a := &history.Activity{
			ID:        "act-2",
			Action:    history.ActionCreate,
			Actor:     actor,
			Outcome:   history.OutcomePending,
			CreatedAt: base.Add(time.Second),
		}
		require.NoError(t, store.Record(ctx, a))
		require.NoError(t, store.MarkConfirmed(ctx, "act-2", 9))

		got, err := store.ByBounty(ctx, 9)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, history.OutcomeConfirmed, got[0].Outcome)
		require.Equal(t, uint64(9), got[0].BountyID)
	})

	t.Run("mark failed", func(t *testing.T) {
		a := &history.Activity{
			ID:        "act-3",
			Action:    history.ActionAward,
			BountyID:  4,
			Actor:     actor,
			Outcome:   history.OutcomePending,
			CreatedAt: base.Add(2 * time.Second),
		}
		require.NoError(t, store.Record(ctx, a))
		require.NoError(t, store.MarkFailed(ctx, "act-3", "reverted"))

		got, err := store.ByBounty(ctx, 4)
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, history.OutcomeFailed, got[1].Outcome)
		require.Equal(t, "reverted", got[1].Detail)
	})

	t.Run("missing id", func(t *testing.T) {
		require.ErrorIs(t, store.MarkConfirmed(ctx, "nope", 1), history.ErrNotFound)
		require.ErrorIs(t, store.MarkFailed(ctx, "nope", "x"), history.ErrNotFound)
	})

	t.Run("actor order is creation order", func(t *testing.T) {
		got, err := store.ByActor(ctx, actor)
		require.NoError(t, err)
		require.Len(t, got, 3)
		require.Equal(t, "act-1", got[0].ID)
		require.Equal(t, "act-2", got[1].ID)
		require.Equal(t, "act-3", got[2].ID)
	})
}
