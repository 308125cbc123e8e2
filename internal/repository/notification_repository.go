package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/lensbook/internal/model"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Append(ctx context.Context, recipientID uuid.UUID, notifType model.NotificationType, payload json.RawMessage) (*model.Notification, error) {
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}

	var saved model.Notification
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO notifications (recipient_id, type, payload)
		VALUES (?, ?, ?)
		RETURNING id, recipient_id, type, payload, created_at, read_at
	`, recipientID, notifType, string(payload)).Scan(&saved).Error
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *NotificationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	var notification model.Notification
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, recipient_id, type, payload, created_at, read_at
		FROM notifications
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&notification).Error
	if err != nil {
		return nil, err
	}
	if notification.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &notification, nil
}

// MarkRead sets read_at once; an already-read notification keeps its original
// timestamp, which makes the operation idempotent.
func (r *NotificationRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE notifications
		SET read_at = NOW()
		WHERE id = ? AND read_at IS NULL
	`, id).Error
}

func (r *NotificationRepository) List(ctx context.Context, recipientID uuid.UUID, page, pageSize int) (*model.NotificationPage, error) {
	var total int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM notifications WHERE recipient_id = ?
	`, recipientID).Scan(&total).Error
	if err != nil {
		return nil, err
	}

	offset := (page - 1) * pageSize
	var items []model.Notification
	err = r.db.WithContext(ctx).Raw(`
		SELECT id, recipient_id, type, payload, created_at, read_at
		FROM notifications
		WHERE recipient_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, recipientID, pageSize, offset).Scan(&items).Error
	if err != nil {
		return nil, err
	}

	return &model.NotificationPage{Items: items, Total: total}, nil
}
