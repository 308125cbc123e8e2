package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/lensbook/internal/event"
	"github.com/nurpe/lensbook/internal/model"
	"github.com/nurpe/lensbook/internal/ws"
)

// BookingStore is the persistence surface the booking service needs.
// ApplyTransition is a compare-and-set on the transition's FromState that
// writes the state change and its history row atomically, or neither.
type BookingStore interface {
	Create(ctx context.Context, booking model.Booking) (*model.Booking, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Booking, error)
	ListAll(ctx context.Context) ([]model.Booking, error)
	ApplyTransition(ctx context.Context, tr model.BookingTransition) (bool, error)
	ListTransitions(ctx context.Context, bookingID uuid.UUID) ([]model.BookingTransition, error)
}

// LiveEvents is the push side of the event channel.
type LiveEvents interface {
	Publish(userID uuid.UUID, ev ws.Event)
}

// transitionTable is the full walk of allowed state changes per actor role.
// Anything absent here is an invalid transition.
var transitionTable = map[model.Role]map[model.BookingState][]model.BookingState{
	model.RoleClient: {
		model.BookingRequested: {model.BookingCancelledByClient},
		model.BookingConfirmed: {model.BookingCancelledByClient},
	},
	model.RolePhotographer: {
		model.BookingRequested:  {model.BookingConfirmed, model.BookingCancelledByPhotographer},
		model.BookingConfirmed:  {model.BookingInProgress, model.BookingCompleted, model.BookingCancelledByPhotographer},
		model.BookingInProgress: {model.BookingCompleted},
	},
}

func transitionAllowed(role model.Role, from, to model.BookingState) bool {
	for _, next := range transitionTable[role][from] {
		if next == to {
			return true
		}
	}
	return false
}

type BookingService struct {
	store         BookingStore
	notifications *NotificationService
	live          LiveEvents
}

func NewBookingService(store BookingStore, notifications *NotificationService, live LiveEvents) *BookingService {
	return &BookingService{
		store:         store,
		notifications: notifications,
		live:          live,
	}
}

type CreateBookingInput struct {
	ClientID       uuid.UUID
	PhotographerID uuid.UUID
	StartAt        time.Time
	EndAt          *time.Time
	PriceCents     int64
	Location       string
	Notes          string
}

type bookingEventPayload struct {
	Booking   model.Booking      `json:"booking"`
	FromState model.BookingState `json:"from_state,omitempty"`
	ToState   model.BookingState `json:"to_state"`
	ActorID   uuid.UUID          `json:"actor_id"`
}

// Create opens a booking in REQUESTED state from a direct request.
func (s *BookingService) Create(ctx context.Context, principal model.Principal, input CreateBookingInput) (*model.Booking, error) {
	if err := validateBookingInput(input); err != nil {
		return nil, err
	}
	if !principal.IsAdmin() && principal.UserID != input.ClientID {
		return nil, ErrForbidden
	}

	booking, err := s.store.Create(ctx, model.Booking{
		ClientID:       input.ClientID,
		PhotographerID: input.PhotographerID,
		StartAt:        input.StartAt,
		EndAt:          input.EndAt,
		PriceCents:     input.PriceCents,
		Location:       input.Location,
		Notes:          input.Notes,
		State:          model.BookingRequested,
	})
	if err != nil {
		return nil, err
	}

	s.announce(ctx, *booking, "", model.BookingRequested, input.ClientID)
	return booking, nil
}

// CreateFromProposal consumes a ProposalAccepted domain event and opens the
// booking with the proposal's terms.
func (s *BookingService) CreateFromProposal(ctx context.Context, ev event.ProposalAccepted) error {
	booking, err := s.store.Create(ctx, model.Booking{
		ClientID:       ev.ClientID,
		PhotographerID: ev.PhotographerID,
		StartAt:        ev.StartAt,
		PriceCents:     ev.AmountCents,
		Notes:          ev.Description,
		State:          model.BookingRequested,
	})
	if err != nil {
		return err
	}

	s.announce(ctx, *booking, "", model.BookingRequested, ev.AcceptedBy)
	return nil
}

// Transition moves a booking along the state machine. The booking's state at
// load time is the optimistic baseline: if another writer moved it first the
// compare-and-set misses and the caller gets a conflict to refetch and retry.
func (s *BookingService) Transition(ctx context.Context, principal model.Principal, bookingID uuid.UUID, toState model.BookingState) (*model.Booking, error) {
	booking, err := s.store.Get(ctx, bookingID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := authorizeActor(principal, *booking); err != nil {
		return nil, err
	}

	fromState := booking.State
	if !transitionAllowed(principal.Role, fromState, toState) {
		return nil, fmt.Errorf("%w: %s may not move booking from %s to %s",
			ErrInvalidTransition, principal.Role, fromState, toState)
	}

	applied, err := s.store.ApplyTransition(ctx, model.BookingTransition{
		BookingID: bookingID,
		ActorID:   principal.UserID,
		ActorRole: principal.Role,
		FromState: fromState,
		ToState:   toState,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("%w: booking %s changed since it was read", ErrConflictingTransition, bookingID)
	}

	booking.State = toState
	booking.UpdatedAt = time.Now().UTC()

	s.announce(ctx, *booking, fromState, toState, principal.UserID)
	return booking, nil
}

func (s *BookingService) Get(ctx context.Context, principal model.Principal, bookingID uuid.UUID) (*model.Booking, error) {
	booking, err := s.store.Get(ctx, bookingID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !principal.IsAdmin() && !booking.Party(principal.UserID) {
		return nil, ErrForbidden
	}
	return booking, nil
}

func (s *BookingService) ListMine(ctx context.Context, principal model.Principal) ([]model.Booking, error) {
	return s.store.ListForUser(ctx, principal.UserID)
}

func (s *BookingService) ListAll(ctx context.Context, principal model.Principal) ([]model.Booking, error) {
	if !principal.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.store.ListAll(ctx)
}

func (s *BookingService) History(ctx context.Context, principal model.Principal, bookingID uuid.UUID) ([]model.BookingTransition, error) {
	if _, err := s.Get(ctx, principal, bookingID); err != nil {
		return nil, err
	}
	return s.store.ListTransitions(ctx, bookingID)
}

// announce records the durable notification for the counter-party and pushes
// the live event to both parties. Pushes are fire-and-forget; a disconnected
// party reconciles from the inbox.
func (s *BookingService) announce(ctx context.Context, booking model.Booking, from, to model.BookingState, actorID uuid.UUID) {
	payload := bookingEventPayload{
		Booking:   booking,
		FromState: from,
		ToState:   to,
		ActorID:   actorID,
	}

	_, _ = s.notifications.Notify(ctx, booking.CounterpartyOf(actorID), model.NotifBookingStateChanged, payload)

	liveEvent := ws.Event{Type: ws.EventBookingStateChanged, Payload: payload}
	s.live.Publish(booking.ClientID, liveEvent)
	s.live.Publish(booking.PhotographerID, liveEvent)
}

func authorizeActor(principal model.Principal, booking model.Booking) error {
	switch principal.Role {
	case model.RoleClient:
		if booking.ClientID != principal.UserID {
			return ErrForbidden
		}
	case model.RolePhotographer:
		if booking.PhotographerID != principal.UserID {
			return ErrForbidden
		}
	default:
		return ErrForbidden
	}
	return nil
}

func validateBookingInput(input CreateBookingInput) error {
	if input.ClientID == uuid.Nil || input.PhotographerID == uuid.Nil {
		return fmt.Errorf("%w: both parties are required", ErrInvalidInput)
	}
	if input.ClientID == input.PhotographerID {
		return fmt.Errorf("%w: client and photographer must differ", ErrInvalidInput)
	}
	if input.StartAt.IsZero() {
		return fmt.Errorf("%w: start_at is required", ErrInvalidInput)
	}
	if input.EndAt != nil && input.EndAt.Before(input.StartAt) {
		return fmt.Errorf("%w: end_at must not be before start_at", ErrInvalidInput)
	}
	if input.PriceCents < 0 {
		return fmt.Errorf("%w: price_cents must not be negative", ErrInvalidInput)
	}
	return nil
}
