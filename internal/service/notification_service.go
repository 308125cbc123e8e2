package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/lensbook/internal/model"
	"github.com/nurpe/lensbook/internal/ws"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type NotificationStore interface {
	Append(ctx context.Context, recipientID uuid.UUID, notifType model.NotificationType, payload json.RawMessage) (*model.Notification, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, recipientID uuid.UUID, page, pageSize int) (*model.NotificationPage, error)
}

type NotificationService struct {
	store NotificationStore
	live  LiveEvents
}

func NewNotificationService(store NotificationStore, live LiveEvents) *NotificationService {
	return &NotificationService{store: store, live: live}
}

// Notify appends the durable record and pushes it to the recipient's live
// connections. The inbox is the source of truth; the push is best-effort.
func (s *NotificationService) Notify(ctx context.Context, recipientID uuid.UUID, notifType model.NotificationType, payload interface{}) (*model.Notification, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal notification payload: %w", err)
	}

	notification, err := s.store.Append(ctx, recipientID, notifType, raw)
	if err != nil {
		return nil, err
	}

	s.live.Publish(recipientID, ws.Event{Type: ws.EventNotificationCreated, Payload: notification})
	return notification, nil
}

// MarkRead is idempotent: the first call sets read_at, later calls return the
// same timestamp.
func (s *NotificationService) MarkRead(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Notification, error) {
	notification, err := s.store.Get(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if notification.RecipientID != principal.UserID {
		return nil, ErrForbidden
	}

	if notification.ReadAt == nil {
		if err := s.store.MarkRead(ctx, id); err != nil {
			return nil, err
		}
		notification, err = s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	s.live.Publish(principal.UserID, ws.Event{Type: ws.EventNotificationRead, Payload: notification})
	return notification, nil
}

func (s *NotificationService) List(ctx context.Context, principal model.Principal, page, pageSize int) (*model.NotificationPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return s.store.List(ctx, principal.UserID, page, pageSize)
}
