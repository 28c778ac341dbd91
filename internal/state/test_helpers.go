package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jadhav-onkar/Industrial-AI/internal/config"
	"github.com/jadhav-onkar/Industrial-AI/internal/logger"
)

// NewTestManager opens a migrated database in a temp directory that is
// closed when the test ends
func NewTestManager(t testing.TB) *Manager {
	t.Helper()

	cfg := &config.Config{}
	cfg.Database.Path = filepath.Join(t.TempDir(), "db", "test.db")

	mgr, err := NewManager(context.Background(), cfg, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })

	return mgr
}
