package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/lensbook/internal/model"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, booking model.Booking) (*model.Booking, error) {
	var saved model.Booking
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO bookings (
			client_id,
			photographer_id,
			start_at,
			end_at,
			price_cents,
			location,
			notes,
			state
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING
			id,
			client_id,
			photographer_id,
			start_at,
			end_at,
			price_cents,
			location,
			notes,
			state,
			created_at,
			updated_at
	`,
		booking.ClientID,
		booking.PhotographerID,
		booking.StartAt,
		booking.EndAt,
		booking.PriceCents,
		booking.Location,
		booking.Notes,
		booking.State,
	).Scan(&saved).Error
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *BookingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var booking model.Booking
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			client_id,
			photographer_id,
			start_at,
			end_at,
			price_cents,
			location,
			notes,
			state,
			created_at,
			updated_at
		FROM bookings
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&booking).Error
	if err != nil {
		return nil, err
	}
	if booking.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &booking, nil
}

func (r *BookingRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Booking, error) {
	var bookings []model.Booking
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			client_id,
			photographer_id,
			start_at,
			end_at,
			price_cents,
			location,
			notes,
			state,
			created_at,
			updated_at
		FROM bookings
		WHERE client_id = ? OR photographer_id = ?
		ORDER BY created_at DESC
	`, userID, userID).Scan(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *BookingRepository) ListAll(ctx context.Context) ([]model.Booking, error) {
	var bookings []model.Booking
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			client_id,
			photographer_id,
			start_at,
			end_at,
			price_cents,
			location,
			notes,
			state,
			created_at,
			updated_at
		FROM bookings
		ORDER BY created_at DESC
	`).Scan(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// ApplyTransition advances the booking and appends its history row in one
// transaction, but only if the booking is still in the observed baseline
// state. Zero rows affected on the update means another writer got there
// first: nothing is written and the caller maps that to a conflict. A failure
// on either statement rolls back both, so the state never advances without a
// matching history entry.
func (r *BookingRepository) ApplyTransition(ctx context.Context, tr model.BookingTransition) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(`
			UPDATE bookings
			SET state = ?, updated_at = NOW()
			WHERE id = ? AND state = ?
		`, tr.ToState, tr.BookingID, tr.FromState)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		if err := tx.Exec(`
			INSERT INTO booking_transitions (
				booking_id,
				actor_id,
				actor_role,
				from_state,
				to_state
			) VALUES (?, ?, ?, ?, ?)
		`,
			tr.BookingID,
			tr.ActorID,
			tr.ActorRole,
			tr.FromState,
			tr.ToState,
		).Error; err != nil {
			return err
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (r *BookingRepository) ListTransitions(ctx context.Context, bookingID uuid.UUID) ([]model.BookingTransition, error) {
	var transitions []model.BookingTransition
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			booking_id,
			actor_id,
			actor_role,
			from_state,
			to_state,
			created_at
		FROM booking_transitions
		WHERE booking_id = ?
		ORDER BY created_at ASC
	`, bookingID).Scan(&transitions).Error
	if err != nil {
		return nil, err
	}
	return transitions, nil
}

func (r *BookingRepository) GetParty(ctx context.Context, userID uuid.UUID) (*model.Party, error) {
	var party model.Party
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, full_name, email, phone, role
		FROM users
		WHERE id = ?
		LIMIT 1
	`, userID).Scan(&party).Error
	if err != nil {
		return nil, err
	}
	if party.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &party, nil
}
