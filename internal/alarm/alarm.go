// Package alarm plays the audible alert without blocking the frame loop
package alarm

import (
	"context"
	"os/exec"
	"sync"
	"time"

	"github.com/jadhav-onkar/Industrial-AI/internal/config"
	"github.com/jadhav-onkar/Industrial-AI/internal/logger"
)

// playTimeout bounds a single playback
const playTimeout = 30 * time.Second

// Player starts the configured sound player once per kind, at most every
// MinGap. Playback runs in its own goroutine and errors are only logged.
type Player struct {
	command   []string
	soundPath string
	minGap    time.Duration
	logger    *logger.Logger

	mu   sync.Mutex
	last map[string]time.Time
	wg   sync.WaitGroup

	now func() time.Time
	run func(ctx context.Context, name string, args ...string) error
}

// NewPlayer creates a player. It is disabled when cfg.Command is empty.
func NewPlayer(cfg config.AlarmConfig, log *logger.Logger) *Player {
	return &Player{
		command:   cfg.Command,
		soundPath: cfg.SoundPath,
		minGap:    cfg.MinGap,
		logger:    log,
		last:      make(map[string]time.Time),
		now:       time.Now,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

// Enabled reports whether a player command is configured
func (p *Player) Enabled() bool {
	return p != nil && len(p.command) > 0
}

// Trigger plays the alarm for kind unless it played within MinGap.
// It returns whether playback was started.
func (p *Player) Trigger(kind string) bool {
	if !p.Enabled() {
		return false
	}

	p.mu.Lock()
	now := p.now()
	if last, ok := p.last[kind]; ok && now.Sub(last) < p.minGap {
		p.mu.Unlock()
		return false
	}
	p.last[kind] = now
	p.mu.Unlock()

	args := append(append([]string{}, p.command[1:]...), p.soundPath)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), playTimeout)
		defer cancel()
		if err := p.run(ctx, p.command[0], args...); err != nil {
			p.logger.Warn("Alarm playback failed", "kind", kind, "error", err)
		}
	}()
	return true
}

// Wait blocks until running playbacks finish
func (p *Player) Wait() {
	if p != nil {
		p.wg.Wait()
	}
}
