package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const cameraColumns = `id, user_id, cam_id, fire_detection, pose_alert, restricted_zone,
	safety_gear_detection, region, created_at, updated_at`

func scanCamera(row interface{ Scan(...interface{}) error }) (*Camera, error) {
	var cam Camera
	err := row.Scan(
		&cam.ID, &cam.UserID, &cam.CamID, &cam.FireDetection, &cam.PoseAlert,
		&cam.RestrictedZone, &cam.SafetyGearDetection, &cam.Region,
		&cam.CreatedAt, &cam.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cam, nil
}

// UpsertCamera creates the camera for (user, cam_id) or updates its
// detector flags when it already exists
func (m *Manager) UpsertCamera(ctx context.Context, cam Camera) (*Camera, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	query := `
		INSERT INTO cameras (user_id, cam_id, fire_detection, pose_alert, restricted_zone,
			safety_gear_detection, region, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, cam_id) DO UPDATE SET
			fire_detection = excluded.fire_detection,
			pose_alert = excluded.pose_alert,
			restricted_zone = excluded.restricted_zone,
			safety_gear_detection = excluded.safety_gear_detection,
			region = excluded.region,
			updated_at = excluded.updated_at
	`
	_, err := m.db.GetDB().ExecContext(ctx, query,
		cam.UserID, cam.CamID, cam.FireDetection, cam.PoseAlert, cam.RestrictedZone,
		cam.SafetyGearDetection, cam.Region, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save camera: %w", err)
	}

	row := m.db.GetDB().QueryRowContext(ctx,
		`SELECT `+cameraColumns+` FROM cameras WHERE user_id = ? AND cam_id = ?`,
		cam.UserID, cam.CamID,
	)
	saved, err := scanCamera(row)
	if err != nil {
		return nil, fmt.Errorf("failed to reload camera: %w", err)
	}
	return saved, nil
}

// GetCameraByCamID returns the user's camera with the given cam_id
func (m *Manager) GetCameraByCamID(ctx context.Context, userID int64, camID string) (*Camera, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row := m.db.GetDB().QueryRowContext(ctx,
		`SELECT `+cameraColumns+` FROM cameras WHERE user_id = ? AND cam_id = ?`,
		userID, camID,
	)
	cam, err := scanCamera(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get camera: %w", err)
	}
	return cam, nil
}

// ListCameras lists a user's cameras in creation order
func (m *Manager) ListCameras(ctx context.Context, userID int64) ([]Camera, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows, err := m.db.GetDB().QueryContext(ctx,
		`SELECT `+cameraColumns+` FROM cameras WHERE user_id = ? ORDER BY id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cameras: %w", err)
	}
	defer rows.Close()

	cameras := make([]Camera, 0)
	for rows.Next() {
		cam, err := scanCamera(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan camera: %w", err)
		}
		cameras = append(cameras, *cam)
	}
	return cameras, rows.Err()
}

// DeleteCamera deletes a camera owned by the user
func (m *Manager) DeleteCamera(ctx context.Context, userID, cameraID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, err := m.db.GetDB().ExecContext(ctx,
		`DELETE FROM cameras WHERE id = ? AND user_id = ?`, cameraID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete camera: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
