package alerts

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/jadhav-onkar/Industrial-AI/internal/config"
	"github.com/jadhav-onkar/Industrial-AI/internal/logger"
	"github.com/jadhav-onkar/Industrial-AI/internal/service"
	"github.com/jadhav-onkar/Industrial-AI/internal/state"
)

func testFrame(t *testing.T) gocv.Mat {
	t.Helper()
	frame := gocv.NewMatWithSize(58, 100, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })
	return frame
}

func newTestRecorder(t *testing.T) (*Recorder, *state.Manager, *time.Time) {
	t.Helper()
	store := state.NewTestManager(t)
	rec := NewRecorder(store, config.AlertsConfig{Window: time.Minute}, logger.NewNopLogger())
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec.now = func() time.Time { return clock }
	return rec, store, &clock
}

func createUser(t *testing.T, store *state.Manager, name string) *state.User {
	t.Helper()
	u, err := store.CreateUser(context.Background(), name, name+"@example.com", "hash")
	require.NoError(t, err)
	return u
}

func TestRecorder_ThrottlesWithinWindow(t *testing.T) {
	ctx := context.Background()
	rec, store, clock := newTestRecorder(t)
	user := createUser(t, store, "alice")
	frame := testFrame(t)

	ok, err := rec.Record(ctx, user.ID, nil, "fire_detection", frame)
	require.NoError(t, err)
	assert.True(t, ok)

	*clock = clock.Add(30 * time.Second)
	ok, err = rec.Record(ctx, user.ID, nil, "fire_detection", frame)
	require.NoError(t, err)
	assert.False(t, ok)

	// Exactly one window later is still throttled
	*clock = clock.Add(30 * time.Second)
	ok, err = rec.Record(ctx, user.ID, nil, "fire_detection", frame)
	require.NoError(t, err)
	assert.False(t, ok)

	*clock = clock.Add(time.Second)
	ok, err = rec.Record(ctx, user.ID, nil, "fire_detection", frame)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := store.CountAlerts(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRecorder_KeyedByUserAndType(t *testing.T) {
	ctx := context.Background()
	rec, store, _ := newTestRecorder(t)
	alice := createUser(t, store, "alice")
	bob := createUser(t, store, "bob")
	frame := testFrame(t)

	for _, tc := range []struct {
		user int64
		kind string
	}{
		{alice.ID, "fire_detection"},
		{alice.ID, "gear_detection"},
		{bob.ID, "fire_detection"},
	} {
		ok, err := rec.Record(ctx, tc.user, nil, tc.kind, frame)
		require.NoError(t, err)
		assert.True(t, ok, "%d/%s", tc.user, tc.kind)
	}
}

func TestRecorder_UsesDatabaseAfterRestart(t *testing.T) {
	ctx := context.Background()
	rec, store, clock := newTestRecorder(t)
	user := createUser(t, store, "alice")
	frame := testFrame(t)

	ok, err := rec.Record(ctx, user.ID, nil, "pose_alert", frame)
	require.NoError(t, err)
	require.True(t, ok)

	// A fresh recorder has an empty cache but must still honor the window
	fresh := NewRecorder(store, config.AlertsConfig{Window: time.Minute}, logger.NewNopLogger())
	fresh.now = func() time.Time { return clock.Add(10 * time.Second) }

	ok, err = fresh.Record(ctx, user.ID, nil, "pose_alert", frame)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecorder_StoresSnapshotAndCamera(t *testing.T) {
	ctx := context.Background()
	rec, store, _ := newTestRecorder(t)
	user := createUser(t, store, "alice")
	cam, err := store.UpsertCamera(ctx, state.Camera{UserID: user.ID, CamID: "0", FireDetection: true})
	require.NoError(t, err)

	ok, err := rec.Record(ctx, user.ID, &cam.ID, "fire_detection", testFrame(t))
	require.NoError(t, err)
	require.True(t, ok)

	list, err := store.ListAlerts(ctx, user.ID, state.AlertFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].CameraID)
	assert.Equal(t, cam.ID, *list[0].CameraID)

	snap := list[0].FrameSnapshot
	require.Greater(t, len(snap), 2)
	assert.Equal(t, []byte{0xFF, 0xD8}, snap[:2])
}

func TestRecorder_PublishesEvent(t *testing.T) {
	ctx := context.Background()
	rec, store, _ := newTestRecorder(t)
	user := createUser(t, store, "alice")

	bus := service.NewEventBus(4)
	defer bus.Close()
	ch := bus.Subscribe(service.EventTypeAlertCreated)
	rec.SetEventBus(bus)

	_, err := rec.Record(ctx, user.ID, nil, "gear_detection", testFrame(t))
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.Equal(t, user.ID, ev.Data["user_id"])
		assert.Equal(t, "gear_detection", ev.Data["alert_type"])
		assert.NotContains(t, ev.Data, "camera_id")
	case <-time.After(time.Second):
		t.Fatal("no alert.created event")
	}
}

type failingStore struct{}

func (failingStore) LatestAlertTime(ctx context.Context, userID int64, alertType string) (time.Time, bool, error) {
	return time.Time{}, false, errors.New("db down")
}

func (failingStore) CreateAlert(ctx context.Context, alert state.Alert) (*state.Alert, error) {
	return nil, errors.New("db down")
}

func TestRecorder_StoreError(t *testing.T) {
	rec := NewRecorder(failingStore{}, config.AlertsConfig{Window: time.Minute}, logger.NewNopLogger())
	ok, err := rec.Record(context.Background(), 1, nil, "fire_detection", testFrame(t))
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRecorder_Forget(t *testing.T) {
	ctx := context.Background()
	rec, store, _ := newTestRecorder(t)
	user := createUser(t, store, "alice")
	frame := testFrame(t)

	_, err := rec.Record(ctx, user.ID, nil, "fire_detection", frame)
	require.NoError(t, err)

	list, err := store.ListAlerts(ctx, user.ID, state.AlertFilter{})
	require.NoError(t, err)
	require.NoError(t, store.DeleteAlert(ctx, user.ID, list[0].ID))
	rec.Forget(user.ID)

	ok, err := rec.Record(ctx, user.ID, nil, "fire_detection", frame)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAnnotate_DrawsRedBoxes(t *testing.T) {
	frame := testFrame(t)
	Annotate(&frame, []image.Rectangle{image.Rect(10, 10, 40, 40)})

	// BGR order
	px := frame.GetVecbAt(10, 20)
	assert.Equal(t, uint8(0), px[0])
	assert.Equal(t, uint8(0), px[1])
	assert.Equal(t, uint8(255), px[2])

	inside := frame.GetVecbAt(25, 25)
	assert.Equal(t, uint8(0), inside[2])
}

type countingCleaner struct {
	alerts    int
	sessions  int
	retention time.Duration
}

func (c *countingCleaner) CleanupOldAlerts(ctx context.Context, retention time.Duration) (int64, error) {
	c.alerts++
	c.retention = retention
	return 3, nil
}

func (c *countingCleaner) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	c.sessions++
	return 1, nil
}

func TestJanitor_Sweep(t *testing.T) {
	c := &countingCleaner{}
	j := NewJanitor(c, config.AlertsConfig{RetentionDays: 30, CleanupInterval: time.Hour}, logger.NewNopLogger())

	bus := service.NewEventBus(4)
	defer bus.Close()
	j.SetEventBus(bus)
	events := bus.Subscribe(service.EventTypeCleanupCompleted)

	j.Sweep(context.Background())
	assert.Equal(t, 1, c.alerts)
	assert.Equal(t, 1, c.sessions)
	assert.Equal(t, 30*24*time.Hour, c.retention)

	select {
	case ev := <-events:
		assert.Equal(t, "janitor", ev.Source)
		assert.Equal(t, int64(3), ev.Data["alerts_deleted"])
		assert.Equal(t, int64(1), ev.Data["sessions_purged"])
	case <-time.After(time.Second):
		t.Fatal("cleanup event not published")
	}
}

func TestJanitor_StartStop(t *testing.T) {
	store := state.NewTestManager(t)
	j := NewJanitor(store, config.AlertsConfig{RetentionDays: 1, CleanupInterval: 10 * time.Millisecond}, logger.NewNopLogger())

	require.NoError(t, j.Start(context.Background()))
	assert.True(t, j.GetStatus().IsRunning())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, j.Stop(ctx))
	assert.Equal(t, service.StatusStopped, j.GetStatus().GetStatus())
}
