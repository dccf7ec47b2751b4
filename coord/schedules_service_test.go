package coord_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kachraalert/kachra-auth/coord"
)

func TestCreateSchedule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := uuid.New()

	events, cancel := env.hub.Subscribe("", 4)
	defer cancel()

	tomorrow := time.Now().Add(24 * time.Hour).Format("2006-01-02")
	schedule, err := env.schedules.Create(ctx, admin, coord.CreateSchedulePayload{
		DateISO:   tomorrow,
		TimeLabel: "7:00 AM - 9:00 AM",
		Waste:     coord.WasteOrganic,
	})
	require.NoError(t, err)
	assert.Equal(t, coord.ScheduleStatusUpcoming, schedule.Status)
	assert.Equal(t, admin, schedule.CreatedBy)

	assert.Equal(t, coord.EventScheduleCreated, recvEvent(t, events).Type)
}

func TestCreateScheduleRejectsBadWaste(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.schedules.Create(context.Background(), uuid.New(), coord.CreateSchedulePayload{
		DateISO:   "2026-09-01",
		TimeLabel: "7:00 AM",
		Waste:     "nuclear",
	})
	assert.ErrorIs(t, err, coord.ErrInvalidEnum)
}

func TestListUpcomingSkipsPastAndSettled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := uuid.New()

	yesterday := time.Now().Add(-24 * time.Hour).Format("2006-01-02")
	tomorrow := time.Now().Add(24 * time.Hour).Format("2006-01-02")
	nextWeek := time.Now().Add(7 * 24 * time.Hour).Format("2006-01-02")

	_, err := env.schedules.Create(ctx, admin, coord.CreateSchedulePayload{
		DateISO: yesterday, TimeLabel: "7:00 AM", Waste: coord.WasteGeneral,
	})
	require.NoError(t, err)

	soon, err := env.schedules.Create(ctx, admin, coord.CreateSchedulePayload{
		DateISO: tomorrow, TimeLabel: "7:00 AM", Waste: coord.WasteOrganic,
	})
	require.NoError(t, err)

	later, err := env.schedules.Create(ctx, admin, coord.CreateSchedulePayload{
		DateISO: nextWeek, TimeLabel: "8:00 AM", Waste: coord.WasteRecyclable,
	})
	require.NoError(t, err)

	// A completed future pickup is no longer upcoming.
	missed, err := env.schedules.Create(ctx, admin, coord.CreateSchedulePayload{
		DateISO: nextWeek, TimeLabel: "9:00 AM", Waste: coord.WasteHazardous,
	})
	require.NoError(t, err)
	_, err = env.schedules.UpdateStatus(ctx, missed.ID, coord.ScheduleStatusCompleted)
	require.NoError(t, err)

	upcoming, err := env.schedules.ListUpcoming(ctx, 0)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, soon.ID, upcoming[0].ID)
	assert.Equal(t, later.ID, upcoming[1].ID)
}

func TestDeleteSchedule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tomorrow := time.Now().Add(24 * time.Hour).Format("2006-01-02")
	schedule, err := env.schedules.Create(ctx, uuid.New(), coord.CreateSchedulePayload{
		DateISO: tomorrow, TimeLabel: "7:00 AM", Waste: coord.WasteOrganic,
	})
	require.NoError(t, err)

	events, cancel := env.hub.Subscribe("", 4)
	defer cancel()

	require.NoError(t, env.schedules.Delete(ctx, schedule.ID))
	assert.Equal(t, coord.EventScheduleDeleted, recvEvent(t, events).Type)

	upcoming, err := env.schedules.ListUpcoming(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, upcoming)

	assert.ErrorIs(t, env.schedules.Delete(ctx, schedule.ID), coord.ErrScheduleNotFound)
}

func TestUpdateScheduleStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	schedule, err := env.schedules.Create(ctx, uuid.New(), coord.CreateSchedulePayload{
		DateISO: "2026-09-01", TimeLabel: "7:00 AM", Waste: coord.WasteOrganic,
	})
	require.NoError(t, err)

	events, cancel := env.hub.Subscribe("", 4)
	defer cancel()

	updated, err := env.schedules.UpdateStatus(ctx, schedule.ID, coord.ScheduleStatusMissed)
	require.NoError(t, err)
	assert.Equal(t, coord.ScheduleStatusMissed, updated.Status)
	assert.Equal(t, coord.EventScheduleUpdated, recvEvent(t, events).Type)

	_, err = env.schedules.UpdateStatus(ctx, schedule.ID, "Cancelled")
	assert.ErrorIs(t, err, coord.ErrInvalidEnum)

	_, err = env.schedules.UpdateStatus(ctx, uuid.New(), coord.ScheduleStatusCompleted)
	assert.ErrorIs(t, err, coord.ErrScheduleNotFound)
}
