package tasks_test

import (
	"context"
	"math/rand"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-billing/internal/feeder"
	"github.com/noah-isme/backend-billing/internal/money"
	"github.com/noah-isme/backend-billing/internal/msisdn"
	"github.com/noah-isme/backend-billing/internal/statement"
	"github.com/noah-isme/backend-billing/internal/store"
	"github.com/noah-isme/backend-billing/internal/tasks"
)

func newHandler(t *testing.T) (*tasks.Handler, *store.Store) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := store.New(client)
	h := &tasks.Handler{
		Store: s,
		Feeder: &feeder.Feeder{
			Store:  s,
			Logger: zerolog.Nop(),
			Rand:   rand.New(rand.NewSource(1)),
		},
		Logger: zerolog.Nop(),
	}
	return h, s
}

func TestHandleFeed(t *testing.T) {
	h, _ := newHandler(t)

	task, err := tasks.NewFeedTask(3)
	require.NoError(t, err)
	require.Equal(t, tasks.TypeFeed, task.Type())
	require.NoError(t, h.HandleFeed(context.Background(), task))
}

func TestHandleProcess(t *testing.T) {
	h, s := newHandler(t)
	ctx := context.Background()

	number, err := msisdn.New("31", "612345678")
	require.NoError(t, err)
	st, err := statement.NewSubscriber("ACC-1", 1, number, nil)
	require.NoError(t, err)
	total, err := money.New(decimal.RequireFromString("10.00"), "EUR")
	require.NoError(t, err)
	require.NoError(t, st.AddRow(&statement.Row{Name: "calls", Category: "voice", GroupName: "usage", Total: &total}))
	require.NoError(t, s.Put(ctx, st))

	task, err := tasks.NewProcessTask(st.ID)
	require.NoError(t, err)
	require.NoError(t, h.HandleProcess(ctx, task))

	got, err := s.Get(ctx, st.ID)
	require.NoError(t, err)
	require.True(t, got.Processed)
	require.Len(t, got.GroupTotals, 1)

	// Re-processing an already finalized statement is a no-op.
	require.NoError(t, h.HandleProcess(ctx, task))
}

func TestHandleProcessMissingStatement(t *testing.T) {
	h, _ := newHandler(t)

	task, err := tasks.NewProcessTask("nope")
	require.NoError(t, err)
	require.ErrorIs(t, h.HandleProcess(context.Background(), task), store.ErrNotFound)
}
