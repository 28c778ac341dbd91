package state

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jadhav-onkar/Industrial-AI/internal/config"
	"github.com/jadhav-onkar/Industrial-AI/internal/logger"
)

// User is a registered account
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is a login session. Only the hash of the cookie token is stored.
type Session struct {
	TokenHash string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Camera is a camera registered by a user together with the detectors
// enabled for it
type Camera struct {
	ID                  int64     `json:"id"`
	UserID              int64     `json:"user_id"`
	CamID               string    `json:"cam_id"`
	FireDetection       bool      `json:"fire_detection"`
	PoseAlert           bool      `json:"pose_alert"`
	RestrictedZone      bool      `json:"restricted_zone"`
	SafetyGearDetection bool      `json:"safety_gear_detection"`
	Region              string    `json:"region,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Alert is a persisted detection with its JPEG snapshot
type Alert struct {
	ID            int64
	UserID        int64
	CameraID      *int64
	DateTime      time.Time
	AlertType     string
	FrameSnapshot []byte
}

// AlertFilter narrows ListAlerts. Zero values mean no restriction.
type AlertFilter struct {
	AlertType string
	Limit     int
}

// Manager owns the database and exposes typed queries
type Manager struct {
	db     *Database
	logger *logger.Logger
	mu     sync.RWMutex
	now    func() time.Time
}

// NewManager opens the configured database and migrates it
func NewManager(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Manager, error) {
	db, err := NewDatabase(ctx, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	log.Info("Database ready", "path", cfg.Database.Path)

	return &Manager{
		db:     db,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close closes the state manager and database
func (m *Manager) Close() error {
	return m.db.Close()
}

// GetDB returns the database connection
func (m *Manager) GetDB() *sql.DB {
	return m.db.GetDB()
}

// Ping checks the database connection
func (m *Manager) Ping(ctx context.Context) error {
	return m.db.Ping(ctx)
}

// SchemaVersion returns the applied migration version
func (m *Manager) SchemaVersion(ctx context.Context) (int, error) {
	return newMigrator(m.db.GetDB()).CurrentVersion(ctx)
}
