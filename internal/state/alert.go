package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateAlert inserts an alert and returns it with its ID. A zero DateTime
// is stamped with the current time.
func (m *Manager) CreateAlert(ctx context.Context, alert Alert) (*Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if alert.DateTime.IsZero() {
		alert.DateTime = m.now()
	}
	alert.DateTime = alert.DateTime.UTC()

	var cameraID interface{}
	if alert.CameraID != nil {
		cameraID = *alert.CameraID
	}

	res, err := m.db.GetDB().ExecContext(ctx,
		`INSERT INTO alerts (user_id, camera_id, date_time, alert_type, frame_snapshot) VALUES (?, ?, ?, ?, ?)`,
		alert.UserID, cameraID, alert.DateTime, alert.AlertType, alert.FrameSnapshot,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	alert.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read alert id: %w", err)
	}
	return &alert, nil
}

// LatestAlertTime returns the time of the newest alert of a type for a user.
// ok is false when the user has never had such an alert.
func (m *Manager) LatestAlertTime(ctx context.Context, userID int64, alertType string) (t time.Time, ok bool, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	err = m.db.GetDB().QueryRowContext(ctx,
		`SELECT date_time FROM alerts WHERE user_id = ? AND alert_type = ? ORDER BY date_time DESC LIMIT 1`,
		userID, alertType,
	).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get latest alert: %w", err)
	}
	return t, true, nil
}

// ListAlerts returns a user's alerts newest first, snapshots included
func (m *Manager) ListAlerts(ctx context.Context, userID int64, filter AlertFilter) ([]Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	query := `SELECT id, user_id, camera_id, date_time, alert_type, frame_snapshot FROM alerts WHERE user_id = ?`
	args := []interface{}{userID}
	if filter.AlertType != "" {
		query += ` AND alert_type = ?`
		args = append(args, filter.AlertType)
	}
	query += ` ORDER BY date_time DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := m.db.GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]Alert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

// GetAlert returns one of the user's alerts
func (m *Manager) GetAlert(ctx context.Context, userID, alertID int64) (*Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row := m.db.GetDB().QueryRowContext(ctx,
		`SELECT id, user_id, camera_id, date_time, alert_type, frame_snapshot FROM alerts WHERE id = ? AND user_id = ?`,
		alertID, userID,
	)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return a, nil
}

// DeleteAlert deletes one of the user's alerts
func (m *Manager) DeleteAlert(ctx context.Context, userID, alertID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, err := m.db.GetDB().ExecContext(ctx, `DELETE FROM alerts WHERE id = ? AND user_id = ?`, alertID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountAlerts returns the number of alerts a user has
func (m *Manager) CountAlerts(ctx context.Context, userID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int
	if err := m.db.GetDB().QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return n, nil
}

// CleanupOldAlerts deletes alerts older than the retention period
func (m *Manager) CleanupOldAlerts(ctx context.Context, retention time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-retention)
	res, err := m.db.GetDB().ExecContext(ctx, `DELETE FROM alerts WHERE date_time < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup alerts: %w", err)
	}
	return res.RowsAffected()
}

func scanAlert(row interface{ Scan(...interface{}) error }) (*Alert, error) {
	var a Alert
	var cameraID sql.NullInt64
	if err := row.Scan(&a.ID, &a.UserID, &cameraID, &a.DateTime, &a.AlertType, &a.FrameSnapshot); err != nil {
		return nil, err
	}
	if cameraID.Valid {
		id := cameraID.Int64
		a.CameraID = &id
	}
	return &a, nil
}
