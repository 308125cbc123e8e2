package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/lensbook/internal/event"
	"github.com/nurpe/lensbook/internal/model"
	"github.com/nurpe/lensbook/internal/ws"
)

type ConversationStore interface {
	GetOrCreate(ctx context.Context, clientID, photographerID uuid.UUID) (*model.Conversation, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Conversation, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error)
	CreateMessage(ctx context.Context, msg model.Message) (*model.Message, error)
	GetMessage(ctx context.Context, id uuid.UUID) (*model.Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]model.Message, error)
	LastMessage(ctx context.Context, conversationID uuid.UUID) (*model.Message, error)
	ResolveProposal(ctx context.Context, messageID uuid.UUID, status model.ProposalStatus) (bool, error)
	MarkConversationRead(ctx context.Context, conversationID, userID uuid.UUID) error
	UnreadCount(ctx context.Context, conversationID, userID uuid.UUID) (int64, error)
}

// ProposalEvents is the outbound seam for accepted proposals; the booking
// service subscribes on the other side.
type ProposalEvents interface {
	PublishProposalAccepted(ctx context.Context, ev event.ProposalAccepted) error
}

type MessagingService struct {
	store         ConversationStore
	notifications *NotificationService
	live          LiveEvents
	proposals     ProposalEvents
}

func NewMessagingService(store ConversationStore, notifications *NotificationService, live LiveEvents, proposals ProposalEvents) *MessagingService {
	return &MessagingService{
		store:         store,
		notifications: notifications,
		live:          live,
		proposals:     proposals,
	}
}

type messageEventPayload struct {
	Message      model.Message `json:"message"`
	Conversation uuid.UUID     `json:"conversation_id"`
}

// Open returns the single conversation for the pair, creating it if needed.
func (s *MessagingService) Open(ctx context.Context, principal model.Principal, clientID, photographerID uuid.UUID) (*model.Conversation, error) {
	if clientID == uuid.Nil || photographerID == uuid.Nil {
		return nil, fmt.Errorf("%w: both participants are required", ErrInvalidInput)
	}
	if clientID == photographerID {
		return nil, fmt.Errorf("%w: participants must differ", ErrInvalidInput)
	}
	if !principal.IsAdmin() && principal.UserID != clientID && principal.UserID != photographerID {
		return nil, ErrForbidden
	}
	return s.store.GetOrCreate(ctx, clientID, photographerID)
}

type SendMessageInput struct {
	ConversationID uuid.UUID
	Kind           model.MessageKind
	Body           string
	AttachmentURL  string
}

func (s *MessagingService) Send(ctx context.Context, principal model.Principal, input SendMessageInput) (*model.Message, error) {
	conversation, err := s.conversationFor(ctx, principal, input.ConversationID)
	if err != nil {
		return nil, err
	}

	switch input.Kind {
	case model.MessageText:
		if strings.TrimSpace(input.Body) == "" {
			return nil, fmt.Errorf("%w: message body is required", ErrInvalidInput)
		}
	case model.MessageAttachment:
		if strings.TrimSpace(input.AttachmentURL) == "" {
			return nil, fmt.Errorf("%w: attachment url is required", ErrInvalidInput)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported message kind %q", ErrInvalidInput, input.Kind)
	}

	msg, err := s.store.CreateMessage(ctx, model.Message{
		ConversationID: conversation.ID,
		SenderID:       principal.UserID,
		Kind:           input.Kind,
		Body:           input.Body,
		AttachmentURL:  input.AttachmentURL,
	})
	if err != nil {
		return nil, err
	}

	s.deliver(ctx, *conversation, *msg, principal.UserID)
	return msg, nil
}

func (s *MessagingService) ProposePrice(ctx context.Context, principal model.Principal, conversationID uuid.UUID, amountCents int64, currency, description string) (*model.Message, error) {
	conversation, err := s.conversationFor(ctx, principal, conversationID)
	if err != nil {
		return nil, err
	}

	if amountCents <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return nil, fmt.Errorf("%w: currency must be a 3-letter code", ErrInvalidInput)
	}

	msg, err := s.store.CreateMessage(ctx, model.Message{
		ConversationID: conversation.ID,
		SenderID:       principal.UserID,
		Kind:           model.MessageProposal,
		Body:           description,
		AmountCents:    amountCents,
		Currency:       currency,
		ProposalStatus: model.ProposalPending,
	})
	if err != nil {
		return nil, err
	}

	s.deliver(ctx, *conversation, *msg, principal.UserID)
	return msg, nil
}

type RespondInput struct {
	MessageID uuid.UUID
	Accept    bool

	// StartAt schedules the booking spawned by an acceptance. Proposals carry
	// commercial terms only, so the responder supplies the date; it defaults
	// to the acceptance time.
	StartAt time.Time
}

// Respond resolves a pending proposal exactly once. Acceptance publishes a
// ProposalAccepted event whose consumer opens the booking with the proposal's
// price and description.
func (s *MessagingService) Respond(ctx context.Context, principal model.Principal, input RespondInput) (*model.Message, error) {
	msg, err := s.store.GetMessage(ctx, input.MessageID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if msg.Kind != model.MessageProposal {
		return nil, fmt.Errorf("%w: message %s is not a price proposal", ErrInvalidInput, input.MessageID)
	}

	conversation, err := s.conversationFor(ctx, principal, msg.ConversationID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID == principal.UserID {
		return nil, fmt.Errorf("%w: a proposal cannot be resolved by its sender", ErrForbidden)
	}

	status := model.ProposalRejected
	if input.Accept {
		status = model.ProposalAccepted
	}

	resolved, err := s.store.ResolveProposal(ctx, input.MessageID, status)
	if err != nil {
		return nil, err
	}
	if !resolved {
		return nil, fmt.Errorf("%w: proposal %s", ErrAlreadyResolved, input.MessageID)
	}
	msg.ProposalStatus = status

	if input.Accept {
		startAt := input.StartAt
		if startAt.IsZero() {
			startAt = time.Now().UTC()
		}
		if err := s.proposals.PublishProposalAccepted(ctx, event.ProposalAccepted{
			MessageID:      msg.ID,
			ConversationID: conversation.ID,
			ClientID:       conversation.ClientID,
			PhotographerID: conversation.PhotographerID,
			AmountCents:    msg.AmountCents,
			Currency:       msg.Currency,
			Description:    msg.Body,
			StartAt:        startAt,
			AcceptedBy:     principal.UserID,
			AcceptedAt:     time.Now().UTC(),
		}); err != nil {
			return nil, err
		}
	}

	s.deliver(ctx, *conversation, *msg, principal.UserID)
	return msg, nil
}

func (s *MessagingService) Messages(ctx context.Context, principal model.Principal, conversationID uuid.UUID) ([]model.Message, error) {
	conversation, err := s.conversationFor(ctx, principal, conversationID)
	if err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, conversation.ID)
}

func (s *MessagingService) MarkRead(ctx context.Context, principal model.Principal, conversationID uuid.UUID) error {
	conversation, err := s.conversationFor(ctx, principal, conversationID)
	if err != nil {
		return err
	}
	return s.store.MarkConversationRead(ctx, conversation.ID, principal.UserID)
}

// List returns the viewer's conversations with last message and derived
// unread count.
func (s *MessagingService) List(ctx context.Context, principal model.Principal) ([]model.ConversationSummary, error) {
	conversations, err := s.store.ListForUser(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.ConversationSummary, 0, len(conversations))
	for _, conversation := range conversations {
		summary := model.ConversationSummary{Conversation: conversation}

		if last, err := s.store.LastMessage(ctx, conversation.ID); err == nil {
			summary.LastMessage = last
		} else if err != gorm.ErrRecordNotFound {
			return nil, err
		}

		unread, err := s.store.UnreadCount(ctx, conversation.ID, principal.UserID)
		if err != nil {
			return nil, err
		}
		summary.UnreadCount = unread

		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *MessagingService) conversationFor(ctx context.Context, principal model.Principal, conversationID uuid.UUID) (*model.Conversation, error) {
	conversation, err := s.store.Get(ctx, conversationID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !principal.IsAdmin() && !conversation.Party(principal.UserID) {
		return nil, ErrForbidden
	}
	return conversation, nil
}

// deliver persists the notification for the actor's counter-party and pushes
// the message to both participants' live connections.
func (s *MessagingService) deliver(ctx context.Context, conversation model.Conversation, msg model.Message, actorID uuid.UUID) {
	payload := messageEventPayload{Message: msg, Conversation: conversation.ID}

	recipient := conversation.CounterpartyOf(actorID)
	_, _ = s.notifications.Notify(ctx, recipient, model.NotifNewMessage, payload)

	liveEvent := ws.Event{Type: ws.EventMessageReceived, Payload: payload}
	s.live.Publish(conversation.ClientID, liveEvent)
	s.live.Publish(conversation.PhotographerID, liveEvent)
}
