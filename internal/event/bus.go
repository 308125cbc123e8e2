// Package event carries in-process domain events between services. Accepting
// a proposal must spawn a booking without the messaging service calling the
// booking service directly, so the coupling is a published event instead.
package event

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ProposalAccepted is published when a price proposal resolves to accepted.
// The booking service consumes it and creates the booking from its terms.
type ProposalAccepted struct {
	MessageID      uuid.UUID
	ConversationID uuid.UUID
	ClientID       uuid.UUID
	PhotographerID uuid.UUID
	AmountCents    int64
	Currency       string
	Description    string
	StartAt        time.Time
	AcceptedBy     uuid.UUID
	AcceptedAt     time.Time
}

type ProposalAcceptedHandler func(ctx context.Context, ev ProposalAccepted) error

// Bus is a synchronous fan-out dispatcher. Handlers run on the publisher's
// goroutine; the first handler error aborts publication and is returned to
// the publisher so proposal acceptance stays all-or-nothing.
type Bus struct {
	mu               sync.RWMutex
	proposalAccepted []ProposalAcceptedHandler
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) SubscribeProposalAccepted(h ProposalAcceptedHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.proposalAccepted = append(b.proposalAccepted, h)
}

func (b *Bus) PublishProposalAccepted(ctx context.Context, ev ProposalAccepted) error {
	b.mu.RLock()
	handlers := make([]ProposalAcceptedHandler, len(b.proposalAccepted))
	copy(handlers, b.proposalAccepted)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}
