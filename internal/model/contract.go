package model

import (
	"time"

	"github.com/google/uuid"
)

type SignerRole string

const (
	SignerClient       SignerRole = "CLIENT"
	SignerPhotographer SignerRole = "PHOTOGRAPHER"
)

// Contract is a document artifact bound to one booking. The rendered document
// is immutable once generated; regeneration supersedes the contract and starts
// a fresh signature list.
type Contract struct {
	ID           uuid.UUID   `json:"id"`
	BookingID    uuid.UUID   `json:"booking_id"`
	Document     []byte      `json:"-" gorm:"column:document"`
	SupersededAt *time.Time  `json:"superseded_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	Signatures   []Signature `json:"signatures" gorm:"-"`
}

func (c Contract) Current() bool { return c.SupersededAt == nil }

func (c Contract) SignedBy(role SignerRole) bool {
	for _, sig := range c.Signatures {
		if sig.SignerRole == role {
			return true
		}
	}
	return false
}

type Signature struct {
	ID             uuid.UUID  `json:"id"`
	ContractID     uuid.UUID  `json:"contract_id"`
	SignerRole     SignerRole `json:"signer_role"`
	SignerName     string     `json:"signer_name"`
	SignatureImage string     `json:"signature_image"`
	SignedAt       time.Time  `json:"signed_at"`
}

// ContractDocument is the input for the PDF renderer: the booking and both
// parties at generation time.
type ContractDocument struct {
	Booking      Booking
	Client       Party
	Photographer Party
	GeneratedAt  time.Time
}
