package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"trackify/internal/domain/notification"
)

// NotificationRepository stores push devices, per-user notification settings
// and the in-app notification list.
type NotificationRepository struct {
	db *DB
}

func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const (
	deviceReturning   = ` RETURNING id, user_id, token, platform, active, registered_at, seen_at`
	settingsReturning = ` RETURNING id, user_id, general_enabled, recurring_enabled, updated_at`
	notificationCols  = `id, user_id, title, body, category, data, COALESCE(dedupe_key, ''), opened_at, created_at`
)

func scanDevice(row rowScanner) (*notification.DeviceToken, error) {
	d := &notification.DeviceToken{}
	err := row.Scan(&d.ID, &d.UserID, &d.Token, &d.DeviceType, &d.IsActive, &d.CreatedAt, &d.LastUsed)
	return d, err
}

func scanSettings(row rowScanner) (*notification.Preferences, error) {
	p := &notification.Preferences{}
	err := row.Scan(&p.ID, &p.UserID, &p.GeneralEnabled, &p.RecurringEnabled, &p.UpdatedAt)
	return p, err
}

func scanNotification(row rowScanner) (*notification.Notification, error) {
	n := &notification.Notification{}
	var (
		data     []byte
		openedAt sql.NullTime
	)
	if err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Category, &data, &n.DedupeKey, &openedAt, &n.CreatedAt); err != nil {
		return nil, err
	}
	if openedAt.Valid {
		n.OpenedAt = &openedAt.Time
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, fmt.Errorf("failed to decode notification data: %w", err)
		}
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// UpsertDeviceToken re-activates a known token and hands it to params.UserID.
func (r *NotificationRepository) UpsertDeviceToken(ctx context.Context, params notification.RegisterDeviceParams) (*notification.DeviceToken, error) {
	const query = `
		INSERT INTO push_devices (user_id, token, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE
			SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform, active = true, seen_at = NOW()` + deviceReturning

	d, err := scanDevice(r.db.QueryRowContext(ctx, query, params.UserID, params.Token, string(params.DeviceType)))
	if err != nil {
		return nil, fmt.Errorf("failed to register device: %w", err)
	}
	return d, nil
}

func (r *NotificationRepository) ActiveTokens(ctx context.Context, userID int64) ([]*notification.DeviceToken, error) {
	const query = `
		SELECT id, user_id, token, platform, active, registered_at, seen_at
		FROM push_devices
		WHERE user_id = $1 AND active
		ORDER BY seen_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load devices: %w", err)
	}
	defer rows.Close()

	var devices []*notification.DeviceToken
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

func (r *NotificationRepository) DeactivateToken(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE push_devices SET active = false WHERE token = $1`, token); err != nil {
		return fmt.Errorf("failed to deactivate device: %w", err)
	}
	return nil
}

func (r *NotificationRepository) GetPreferences(ctx context.Context, userID int64) (*notification.Preferences, error) {
	const query = `
		SELECT id, user_id, general_enabled, recurring_enabled, updated_at
		FROM notification_settings
		WHERE user_id = $1
	`

	p, err := scanSettings(r.db.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notification.ErrPreferencesNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load notification settings: %w", err)
	}
	return p, nil
}

// UpsertPreferences applies the non-nil changes. A first write starts from
// all categories enabled.
func (r *NotificationRepository) UpsertPreferences(ctx context.Context, userID int64, changes notification.PreferenceChanges) (*notification.Preferences, error) {
	const query = `
		INSERT INTO notification_settings AS s (user_id, general_enabled, recurring_enabled)
		VALUES ($1, COALESCE($2::boolean, true), COALESCE($3::boolean, true))
		ON CONFLICT (user_id) DO UPDATE
			SET general_enabled = COALESCE($2::boolean, s.general_enabled),
			    recurring_enabled = COALESCE($3::boolean, s.recurring_enabled),
			    updated_at = NOW()` + settingsReturning

	p, err := scanSettings(r.db.QueryRowContext(ctx, query, userID, changes.GeneralEnabled, changes.RecurringEnabled))
	if err != nil {
		return nil, fmt.Errorf("failed to save notification settings: %w", err)
	}
	return p, nil
}

// CreateNotification relies on the partial unique index over
// (user_id, dedupe_key): a conflicting insert returns no row.
func (r *NotificationRepository) CreateNotification(ctx context.Context, msg notification.Message) (*notification.Notification, error) {
	data, err := json.Marshal(msg.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification data: %w", err)
	}

	query := `
		INSERT INTO notifications (user_id, title, body, category, data, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, dedupe_key) WHERE dedupe_key IS NOT NULL DO NOTHING
		RETURNING ` + notificationCols

	n, err := scanNotification(r.db.QueryRowContext(ctx, query,
		msg.UserID, msg.Title, msg.Body, string(msg.Category), data, nullString(msg.DedupeKey)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notification.ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}
	return n, nil
}

func (r *NotificationRepository) ListByUserID(ctx context.Context, userID int64, page, perPage int) ([]*notification.Notification, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	query := `SELECT ` + notificationCols + `
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var list []*notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating notifications: %w", err)
	}
	return list, total, nil
}

// MarkOpened keeps the first opened_at when called again.
func (r *NotificationRepository) MarkOpened(ctx context.Context, notificationID string, userID int64) error {
	var id string
	err := r.db.QueryRowContext(ctx, `
		UPDATE notifications SET opened_at = COALESCE(opened_at, NOW())
		WHERE id::text = $1 AND user_id = $2
		RETURNING id`, notificationID, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return notification.ErrNotificationNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to mark notification opened: %w", err)
	}
	return nil
}
