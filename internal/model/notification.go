package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotifBookingStateChanged NotificationType = "BOOKING_STATE_CHANGED"
	NotifContractSigned      NotificationType = "CONTRACT_SIGNED"
	NotifNewMessage          NotificationType = "NEW_MESSAGE"
	NotifSystem              NotificationType = "SYSTEM"
)

// Notification is an immutable per-recipient event record. ReadAt is set at
// most once and never reverts to nil.
type Notification struct {
	ID          uuid.UUID        `json:"id"`
	RecipientID uuid.UUID        `json:"recipient_id"`
	Type        NotificationType `json:"type"`
	Payload     json.RawMessage  `json:"payload"`
	CreatedAt   time.Time        `json:"created_at"`
	ReadAt      *time.Time       `json:"read_at,omitempty"`
}

type NotificationPage struct {
	Items []Notification `json:"items"`
	Total int64          `json:"total"`
}
