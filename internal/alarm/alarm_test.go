package alarm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jadhav-onkar/Industrial-AI/internal/config"
	"github.com/jadhav-onkar/Industrial-AI/internal/logger"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (r *recorder) run(ctx context.Context, name string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.err
}

func newTestPlayer(rec *recorder, clock *time.Time) *Player {
	p := NewPlayer(config.AlarmConfig{
		Command:   []string{"mpg123", "-q"},
		SoundPath: "alarm.mp3",
		MinGap:    3 * time.Second,
	}, logger.NewNopLogger())
	p.run = rec.run
	p.now = func() time.Time { return *clock }
	return p
}

func TestPlayer_Disabled(t *testing.T) {
	p := NewPlayer(config.AlarmConfig{SoundPath: "alarm.mp3"}, logger.NewNopLogger())
	assert.False(t, p.Enabled())
	assert.False(t, p.Trigger("fire_detection"))

	var nilPlayer *Player
	assert.False(t, nilPlayer.Trigger("fire_detection"))
}

func TestPlayer_RunsCommandWithSoundPath(t *testing.T) {
	rec := &recorder{}
	clock := time.Now()
	p := newTestPlayer(rec, &clock)

	assert.True(t, p.Trigger("fire_detection"))
	p.Wait()

	assert.Equal(t, [][]string{{"mpg123", "-q", "alarm.mp3"}}, rec.calls)
}

func TestPlayer_MinGapPerKind(t *testing.T) {
	rec := &recorder{}
	clock := time.Now()
	p := newTestPlayer(rec, &clock)

	assert.True(t, p.Trigger("fire_detection"))
	assert.False(t, p.Trigger("fire_detection"))
	assert.True(t, p.Trigger("pose_alert"))

	clock = clock.Add(3 * time.Second)
	assert.True(t, p.Trigger("fire_detection"))

	p.Wait()
	assert.Len(t, rec.calls, 3)
}

func TestPlayer_ErrorsDoNotPropagate(t *testing.T) {
	rec := &recorder{err: errors.New("exec: not found")}
	clock := time.Now()
	p := newTestPlayer(rec, &clock)

	assert.True(t, p.Trigger("gear_detection"))
	p.Wait()
	assert.Len(t, rec.calls, 1)
}
