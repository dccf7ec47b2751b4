package coord_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kachraalert/kachra-auth/coord"
)

func TestBroadcastAlert(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := uuid.New()

	events, cancel := env.hub.Subscribe("", 4)
	defer cancel()

	alert, err := env.alerts.Broadcast(ctx, admin, coord.BroadcastAlertPayload{
		Title:    "Pickup delayed",
		Body:     "Truck breakdown, organic pickup moves to tomorrow",
		Severity: coord.SeverityWarning,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, alert.ID)
	assert.Equal(t, coord.SeverityWarning, alert.Severity)
	assert.Equal(t, admin, alert.CreatedBy)

	event := recvEvent(t, events)
	assert.Equal(t, coord.EventAlertCreated, event.Type)

	fetched, err := env.alerts.Get(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pickup delayed", fetched.Title)
}

func TestBroadcastAlertDefaultsSeverity(t *testing.T) {
	env := newTestEnv(t)

	alert, err := env.alerts.Broadcast(context.Background(), uuid.New(), coord.BroadcastAlertPayload{
		Title: "Notice",
		Body:  "Body",
	})
	require.NoError(t, err)
	assert.Equal(t, coord.SeverityInfo, alert.Severity)
}

func TestBroadcastAlertRejectsBadSeverity(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.alerts.Broadcast(context.Background(), uuid.New(), coord.BroadcastAlertPayload{
		Title:    "Notice",
		Body:     "Body",
		Severity: "catastrophic",
	})
	assert.ErrorIs(t, err, coord.ErrInvalidEnum)
}

func TestAlertListForTarget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := uuid.New()

	_, err := env.alerts.Broadcast(ctx, admin, coord.BroadcastAlertPayload{
		Title: "Everyone", Body: "b",
	})
	require.NoError(t, err)
	_, err = env.alerts.Broadcast(ctx, admin, coord.BroadcastAlertPayload{
		Title: "Green Valley only", Body: "b", Target: "Green Valley",
	})
	require.NoError(t, err)
	_, err = env.alerts.Broadcast(ctx, admin, coord.BroadcastAlertPayload{
		Title: "Lakeside only", Body: "b", Target: "Lakeside",
	})
	require.NoError(t, err)

	visible, err := env.alerts.List(ctx, "Green Valley", 0)
	require.NoError(t, err)
	require.Len(t, visible, 2)
	for _, alert := range visible {
		assert.NotEqual(t, "Lakeside", alert.Target)
	}

	all, err := env.alerts.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestAlertMarkRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reader := uuid.New()

	alert, err := env.alerts.Broadcast(ctx, uuid.New(), coord.BroadcastAlertPayload{
		Title: "Notice", Body: "b",
	})
	require.NoError(t, err)

	updated, err := env.alerts.MarkRead(ctx, alert.ID, reader)
	require.NoError(t, err)
	assert.True(t, updated.ReadByUser(reader))

	// Acknowledging twice is a no-op.
	again, err := env.alerts.MarkRead(ctx, alert.ID, reader)
	require.NoError(t, err)
	assert.Len(t, again.ReadBy, 1)

	_, err = env.alerts.MarkRead(ctx, uuid.New(), reader)
	assert.ErrorIs(t, err, coord.ErrAlertNotFound)
}

func TestAlertMarkAllRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := uuid.New()
	reader := uuid.New()

	first, err := env.alerts.Broadcast(ctx, admin, coord.BroadcastAlertPayload{
		Title: "One", Body: "b",
	})
	require.NoError(t, err)
	_, err = env.alerts.Broadcast(ctx, admin, coord.BroadcastAlertPayload{
		Title: "Two", Body: "b",
	})
	require.NoError(t, err)
	_, err = env.alerts.Broadcast(ctx, admin, coord.BroadcastAlertPayload{
		Title: "Three", Body: "b", Target: "Green Valley",
	})
	require.NoError(t, err)

	// One alert is already acknowledged; it does not count again.
	_, err = env.alerts.MarkRead(ctx, first.ID, reader)
	require.NoError(t, err)

	marked, err := env.alerts.MarkAllRead(ctx, reader, "")
	require.NoError(t, err)
	assert.Equal(t, 2, marked)

	all, err := env.alerts.List(ctx, "", 0)
	require.NoError(t, err)
	for _, alert := range all {
		assert.True(t, alert.ReadByUser(reader), "alert %s not acknowledged", alert.Title)
	}

	// A second sweep has nothing left to do.
	marked, err = env.alerts.MarkAllRead(ctx, reader, "")
	require.NoError(t, err)
	assert.Equal(t, 0, marked)
}

func TestAlertMarkReadConcurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alert, err := env.alerts.Broadcast(ctx, uuid.New(), coord.BroadcastAlertPayload{
		Title: "Notice", Body: "b",
	})
	require.NoError(t, err)

	const readers = 8
	errs := make(chan error, readers)
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.alerts.MarkRead(ctx, alert.ID, uuid.New())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	// No acknowledgement was lost to a concurrent writer.
	final, err := env.alerts.Get(ctx, alert.ID)
	require.NoError(t, err)
	assert.Len(t, final.ReadBy, readers)
}

func TestAlertGetUnknown(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.alerts.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, coord.ErrAlertNotFound)
}
