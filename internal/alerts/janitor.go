package alerts

import (
	"context"
	"sync"
	"time"

	"github.com/jadhav-onkar/Industrial-AI/internal/config"
	"github.com/jadhav-onkar/Industrial-AI/internal/logger"
	"github.com/jadhav-onkar/Industrial-AI/internal/service"
)

// Cleaner is the persistence the janitor prunes
type Cleaner interface {
	CleanupOldAlerts(ctx context.Context, retention time.Duration) (int64, error)
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// Janitor periodically deletes alerts past retention and expired sessions
type Janitor struct {
	*service.ServiceBase

	store     Cleaner
	retention time.Duration
	interval  time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewJanitor creates the janitor service. Retention is always positive
// once the config has been loaded.
func NewJanitor(store Cleaner, cfg config.AlertsConfig, log *logger.Logger) *Janitor {
	return &Janitor{
		ServiceBase: service.NewServiceBase("janitor", log),
		store:       store,
		retention:   time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:    cfg.CleanupInterval,
	}
}

// Start runs one sweep immediately and then every interval
func (j *Janitor) Start(ctx context.Context) error {
	ctx, j.cancel = context.WithCancel(ctx)

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.Sweep(ctx)

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.Sweep(ctx)
			}
		}
	}()

	j.GetStatus().SetStatus(service.StatusRunning)
	j.LogInfo("Janitor started", "interval", j.interval, "retention", j.retention)
	return nil
}

// Stop stops the sweep loop
func (j *Janitor) Stop(ctx context.Context) error {
	if j.cancel != nil {
		j.cancel()
	}

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		j.GetStatus().SetStatus(service.StatusStopped)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sweep performs one cleanup pass and publishes what it removed
func (j *Janitor) Sweep(ctx context.Context) {
	alerts, err := j.store.CleanupOldAlerts(ctx, j.retention)
	if err != nil {
		j.LogError("Alert cleanup failed", err)
	} else if alerts > 0 {
		j.LogInfo("Old alerts deleted", "count", alerts)
	}

	sessions, err := j.store.PurgeExpiredSessions(ctx)
	if err != nil {
		j.LogError("Session purge failed", err)
	} else if sessions > 0 {
		j.LogInfo("Expired sessions purged", "count", sessions)
	}

	j.PublishEvent(service.EventTypeCleanupCompleted, map[string]interface{}{
		"alerts_deleted":  alerts,
		"sessions_purged": sessions,
	})
}
