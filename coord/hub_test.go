package coord_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kachraalert/kachra-auth/coord"
)

func recvEvent(t *testing.T, ch <-chan coord.Event) coord.Event {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return coord.Event{}
	}
}

func assertNoEvent(t *testing.T, ch <-chan coord.Event) {
	t.Helper()
	select {
	case event := <-ch:
		t.Fatalf("unexpected event: %s", event.Type)
	default:
	}
}

func TestHubFanOut(t *testing.T) {
	hub := coord.NewHub(nil)
	ctx := context.Background()

	first, cancelFirst := hub.Subscribe("", 4)
	second, cancelSecond := hub.Subscribe("", 4)
	defer cancelFirst()
	defer cancelSecond()

	require.Equal(t, 2, hub.SubscriberCount())

	require.NoError(t, hub.Publish(ctx, coord.Event{Type: coord.EventAlertCreated}))

	assert.Equal(t, coord.EventAlertCreated, recvEvent(t, first).Type)
	assert.Equal(t, coord.EventAlertCreated, recvEvent(t, second).Type)
}

func TestHubTargetFilter(t *testing.T) {
	hub := coord.NewHub(nil)
	ctx := context.Background()

	mine, cancelMine := hub.Subscribe("user-1", 4)
	theirs, cancelTheirs := hub.Subscribe("user-2", 4)
	all, cancelAll := hub.Subscribe("", 4)
	defer cancelMine()
	defer cancelTheirs()
	defer cancelAll()

	require.NoError(t, hub.Publish(ctx, coord.Event{
		Type:   coord.EventInvoicePaid,
		Target: "user-1",
	}))

	assert.Equal(t, "user-1", recvEvent(t, mine).Target)
	assert.Equal(t, "user-1", recvEvent(t, all).Target)
	assertNoEvent(t, theirs)

	// Untargeted events reach everyone.
	require.NoError(t, hub.Publish(ctx, coord.Event{Type: coord.EventScheduleCreated}))
	recvEvent(t, mine)
	recvEvent(t, theirs)
	recvEvent(t, all)
}

func TestHubCancelRemovesSubscription(t *testing.T) {
	hub := coord.NewHub(nil)

	ch, cancel := hub.Subscribe("", 1)
	require.Equal(t, 1, hub.SubscriberCount())

	cancel()
	assert.Equal(t, 0, hub.SubscriberCount())

	_, open := <-ch
	assert.False(t, open)

	// Cancel is idempotent.
	cancel()
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	hub := coord.NewHub(nil)
	ctx := context.Background()

	ch, cancel := hub.Subscribe("", 1)
	defer cancel()

	require.NoError(t, hub.Publish(ctx, coord.Event{Type: coord.EventReportCreated}))
	// Buffer is full so this one is dropped rather than blocking.
	require.NoError(t, hub.Publish(ctx, coord.Event{Type: coord.EventReportUpdated}))

	assert.Equal(t, coord.EventReportCreated, recvEvent(t, ch).Type)
	assertNoEvent(t, ch)
}
