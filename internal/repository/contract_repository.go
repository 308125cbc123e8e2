package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/lensbook/internal/model"
)

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// Create inserts a new contract for the booking and marks any current one
// superseded in the same transaction, so the partial unique index on
// (booking_id) WHERE superseded_at IS NULL always holds.
func (r *ContractRepository) Create(ctx context.Context, bookingID uuid.UUID, document []byte) (*model.Contract, error) {
	var saved model.Contract
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`
			UPDATE contracts
			SET superseded_at = NOW()
			WHERE booking_id = ? AND superseded_at IS NULL
		`, bookingID).Error; err != nil {
			return err
		}

		return tx.Raw(`
			INSERT INTO contracts (booking_id, document)
			VALUES (?, ?)
			RETURNING id, booking_id, document, superseded_at, created_at
		`, bookingID, document).Scan(&saved).Error
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *ContractRepository) Get(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var contract model.Contract
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, booking_id, document, superseded_at, created_at
		FROM contracts
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&contract).Error
	if err != nil {
		return nil, err
	}
	if contract.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}

	signatures, err := r.listSignatures(ctx, id)
	if err != nil {
		return nil, err
	}
	contract.Signatures = signatures
	return &contract, nil
}

func (r *ContractRepository) CurrentForBooking(ctx context.Context, bookingID uuid.UUID) (*model.Contract, error) {
	var contract model.Contract
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, booking_id, document, superseded_at, created_at
		FROM contracts
		WHERE booking_id = ? AND superseded_at IS NULL
		LIMIT 1
	`, bookingID).Scan(&contract).Error
	if err != nil {
		return nil, err
	}
	if contract.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}

	signatures, err := r.listSignatures(ctx, contract.ID)
	if err != nil {
		return nil, err
	}
	contract.Signatures = signatures
	return &contract, nil
}

// AddSignature appends a signature record. The unique index on
// (contract_id, signer_role) makes the second signature for a role a no-op;
// the caller maps zero rows affected to a duplicate-signature error.
func (r *ContractRepository) AddSignature(ctx context.Context, sig model.Signature) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`
		INSERT INTO contract_signatures (contract_id, signer_role, signer_name, signature_image)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (contract_id, signer_role) DO NOTHING
	`, sig.ContractID, sig.SignerRole, sig.SignerName, sig.SignatureImage)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *ContractRepository) listSignatures(ctx context.Context, contractID uuid.UUID) ([]model.Signature, error) {
	var signatures []model.Signature
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, contract_id, signer_role, signer_name, signature_image, signed_at
		FROM contract_signatures
		WHERE contract_id = ?
		ORDER BY signed_at ASC
	`, contractID).Scan(&signatures).Error
	if err != nil {
		return nil, err
	}
	return signatures, nil
}
