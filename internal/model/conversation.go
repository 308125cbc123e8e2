package model

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is the single thread for one (client, photographer) pair.
type Conversation struct {
	ID             uuid.UUID `json:"id"`
	ClientID       uuid.UUID `json:"client_id"`
	PhotographerID uuid.UUID `json:"photographer_id"`
	CreatedAt      time.Time `json:"created_at"`
}

func (c Conversation) Party(userID uuid.UUID) bool {
	return c.ClientID == userID || c.PhotographerID == userID
}

func (c Conversation) CounterpartyOf(userID uuid.UUID) uuid.UUID {
	if c.ClientID == userID {
		return c.PhotographerID
	}
	return c.ClientID
}

type MessageKind string

const (
	MessageText       MessageKind = "TEXT"
	MessageProposal   MessageKind = "PRICE_PROPOSAL"
	MessageAttachment MessageKind = "ATTACHMENT"
)

type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "PENDING"
	ProposalAccepted ProposalStatus = "ACCEPTED"
	ProposalRejected ProposalStatus = "REJECTED"
)

type Message struct {
	ID             uuid.UUID   `json:"id"`
	ConversationID uuid.UUID   `json:"conversation_id"`
	SenderID       uuid.UUID   `json:"sender_id"`
	Kind           MessageKind `json:"kind"`
	Body           string      `json:"body,omitempty"`
	AttachmentURL  string      `json:"attachment_url,omitempty"`

	// Price-proposal fields, zero unless Kind == MessageProposal.
	AmountCents    int64          `json:"amount_cents,omitempty"`
	Currency       string         `json:"currency,omitempty"`
	ProposalStatus ProposalStatus `json:"proposal_status,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type ConversationSummary struct {
	Conversation Conversation `json:"conversation"`
	LastMessage  *Message     `json:"last_message,omitempty"`
	UnreadCount  int64        `json:"unread_count"`
}
