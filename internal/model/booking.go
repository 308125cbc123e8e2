package model

import (
	"time"

	"github.com/google/uuid"
)

type BookingState string

const (
	BookingRequested               BookingState = "REQUESTED"
	BookingConfirmed               BookingState = "CONFIRMED"
	BookingInProgress              BookingState = "IN_PROGRESS"
	BookingCompleted               BookingState = "COMPLETED"
	BookingCancelledByClient       BookingState = "CANCELLED_BY_CLIENT"
	BookingCancelledByPhotographer BookingState = "CANCELLED_BY_PHOTOGRAPHER"
)

func (s BookingState) Terminal() bool {
	switch s {
	case BookingCompleted, BookingCancelledByClient, BookingCancelledByPhotographer:
		return true
	}
	return false
}

type Booking struct {
	ID             uuid.UUID    `json:"id"`
	ClientID       uuid.UUID    `json:"client_id"`
	PhotographerID uuid.UUID    `json:"photographer_id"`
	StartAt        time.Time    `json:"start_at"`
	EndAt          *time.Time   `json:"end_at,omitempty"`
	PriceCents     int64        `json:"price_cents"`
	Location       string       `json:"location,omitempty"`
	Notes          string       `json:"notes,omitempty"`
	State          BookingState `json:"state"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Party returns true when the user is one of the two bound parties.
func (b Booking) Party(userID uuid.UUID) bool {
	return b.ClientID == userID || b.PhotographerID == userID
}

// CounterpartyOf returns the other side of the engagement.
func (b Booking) CounterpartyOf(userID uuid.UUID) uuid.UUID {
	if b.ClientID == userID {
		return b.PhotographerID
	}
	return b.ClientID
}

// BookingTransition is one entry of a booking's append-only history.
type BookingTransition struct {
	ID        uuid.UUID    `json:"id"`
	BookingID uuid.UUID    `json:"booking_id"`
	ActorID   uuid.UUID    `json:"actor_id"`
	ActorRole Role         `json:"actor_role"`
	FromState BookingState `json:"from_state"`
	ToState   BookingState `json:"to_state"`
	CreatedAt time.Time    `json:"created_at"`
}
