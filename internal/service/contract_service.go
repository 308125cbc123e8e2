package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/lensbook/internal/model"
)

type ContractStore interface {
	Create(ctx context.Context, bookingID uuid.UUID, document []byte) (*model.Contract, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	CurrentForBooking(ctx context.Context, bookingID uuid.UUID) (*model.Contract, error)
	AddSignature(ctx context.Context, sig model.Signature) (bool, error)
}

type PartyStore interface {
	GetParty(ctx context.Context, userID uuid.UUID) (*model.Party, error)
}

type DocumentRenderer interface {
	Render(doc model.ContractDocument) ([]byte, error)
}

type ContractService struct {
	contracts       ContractStore
	bookings        BookingStore
	parties         PartyStore
	renderer        DocumentRenderer
	notifications   *NotificationService
	requiredSigners []model.SignerRole
}

func NewContractService(
	contracts ContractStore,
	bookings BookingStore,
	parties PartyStore,
	renderer DocumentRenderer,
	notifications *NotificationService,
	requiredSigners []string,
) *ContractService {
	signers := make([]model.SignerRole, 0, len(requiredSigners))
	for _, raw := range requiredSigners {
		signers = append(signers, model.SignerRole(strings.ToUpper(strings.TrimSpace(raw))))
	}
	if len(signers) == 0 {
		signers = []model.SignerRole{model.SignerClient, model.SignerPhotographer}
	}
	return &ContractService{
		contracts:       contracts,
		bookings:        bookings,
		parties:         parties,
		renderer:        renderer,
		notifications:   notifications,
		requiredSigners: signers,
	}
}

type contractEventPayload struct {
	ContractID    uuid.UUID        `json:"contract_id"`
	BookingID     uuid.UUID        `json:"booking_id"`
	SignerRole    model.SignerRole `json:"signer_role,omitempty"`
	FullyExecuted bool             `json:"fully_executed"`
}

// Generate renders a fresh contract for the booking and supersedes any prior
// one. Regeneration is always permitted, even after a party signed; the new
// version starts with an empty signature list.
func (s *ContractService) Generate(ctx context.Context, principal model.Principal, bookingID uuid.UUID) (*model.Contract, error) {
	booking, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !principal.IsAdmin() && !booking.Party(principal.UserID) {
		return nil, ErrForbidden
	}

	switch booking.State {
	case model.BookingConfirmed, model.BookingInProgress, model.BookingCompleted:
	default:
		return nil, fmt.Errorf("%w: contract requires a confirmed booking, booking is %s",
			ErrInvalidBookingState, booking.State)
	}

	document, err := s.renderer.Render(model.ContractDocument{
		Booking:      *booking,
		Client:       s.party(ctx, booking.ClientID, model.RoleClient),
		Photographer: s.party(ctx, booking.PhotographerID, model.RolePhotographer),
		GeneratedAt:  time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("render contract: %w", err)
	}

	contract, err := s.contracts.Create(ctx, bookingID, document)
	if err != nil {
		return nil, err
	}

	_, _ = s.notifications.Notify(ctx, booking.CounterpartyOf(principal.UserID), model.NotifSystem, contractEventPayload{
		ContractID: contract.ID,
		BookingID:  bookingID,
	})
	return contract, nil
}

// Sign appends the signature of the requester's role. Signing order is not
// enforced; either party may sign first.
func (s *ContractService) Sign(ctx context.Context, principal model.Principal, contractID uuid.UUID, signerName, signatureImage string) (*model.Contract, error) {
	if strings.TrimSpace(signerName) == "" {
		return nil, fmt.Errorf("%w: signer_name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(signatureImage) == "" {
		return nil, fmt.Errorf("%w: signature image is required", ErrInvalidInput)
	}

	contract, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrContractNotFound
		}
		return nil, err
	}
	if !contract.Current() {
		return nil, fmt.Errorf("%w: contract %s was superseded", ErrContractNotFound, contractID)
	}

	booking, err := s.bookings.Get(ctx, contract.BookingID)
	if err != nil {
		return nil, err
	}

	role, err := signerRoleFor(principal, *booking)
	if err != nil {
		return nil, err
	}

	added, err := s.contracts.AddSignature(ctx, model.Signature{
		ContractID:     contractID,
		SignerRole:     role,
		SignerName:     signerName,
		SignatureImage: signatureImage,
	})
	if err != nil {
		return nil, err
	}
	if !added {
		return nil, fmt.Errorf("%w: %s already signed contract %s", ErrDuplicateSignature, role, contractID)
	}

	contract, err = s.contracts.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}

	_, _ = s.notifications.Notify(ctx, booking.CounterpartyOf(principal.UserID), model.NotifContractSigned, contractEventPayload{
		ContractID:    contract.ID,
		BookingID:     booking.ID,
		SignerRole:    role,
		FullyExecuted: s.FullyExecuted(*contract),
	})
	return contract, nil
}

// FullyExecuted reports whether every required role has signed this contract
// version. Once true for a version it never reverts; signatures are
// append-only and regeneration produces a new version.
func (s *ContractService) FullyExecuted(contract model.Contract) bool {
	for _, role := range s.requiredSigners {
		if !contract.SignedBy(role) {
			return false
		}
	}
	return true
}

func (s *ContractService) Get(ctx context.Context, principal model.Principal, contractID uuid.UUID) (*model.Contract, error) {
	contract, booking, err := s.load(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !principal.IsAdmin() && !booking.Party(principal.UserID) {
		return nil, ErrForbidden
	}
	return contract, nil
}

// Download returns the rendered document. Superseded contract ids stay
// resolvable for history.
func (s *ContractService) Download(ctx context.Context, principal model.Principal, contractID uuid.UUID) ([]byte, string, error) {
	contract, booking, err := s.load(ctx, contractID)
	if err != nil {
		return nil, "", err
	}
	if !principal.IsAdmin() && !booking.Party(principal.UserID) {
		return nil, "", ErrForbidden
	}
	fileName := fmt.Sprintf("contract-%s.pdf", contract.ID)
	return contract.Document, fileName, nil
}

func (s *ContractService) load(ctx context.Context, contractID uuid.UUID) (*model.Contract, *model.Booking, error) {
	contract, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, ErrContractNotFound
		}
		return nil, nil, err
	}
	booking, err := s.bookings.Get(ctx, contract.BookingID)
	if err != nil {
		return nil, nil, err
	}
	return contract, booking, nil
}

// party loads profile data for the document, falling back to an id-only
// party when no profile row exists yet.
func (s *ContractService) party(ctx context.Context, userID uuid.UUID, role model.Role) model.Party {
	party, err := s.parties.GetParty(ctx, userID)
	if err != nil {
		return model.Party{ID: userID, Role: role}
	}
	return *party
}

func signerRoleFor(principal model.Principal, booking model.Booking) (model.SignerRole, error) {
	switch {
	case principal.IsClient() && booking.ClientID == principal.UserID:
		return model.SignerClient, nil
	case principal.IsPhotographer() && booking.PhotographerID == principal.UserID:
		return model.SignerPhotographer, nil
	default:
		return "", ErrForbidden
	}
}
