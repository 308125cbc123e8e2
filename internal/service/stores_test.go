package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/lensbook/internal/model"
	"github.com/nurpe/lensbook/internal/ws"
)

// In-memory stores reproducing the repositories' compare-and-set semantics
// under a mutex, so service behavior is tested without a database.

type memBookingStore struct {
	mu          sync.Mutex
	bookings    map[uuid.UUID]model.Booking
	transitions []model.BookingTransition
	parties     map[uuid.UUID]model.Party

	// beforeApplyTransition runs between the service's read and its
	// compare-and-set, letting tests interleave a competing writer.
	beforeApplyTransition func()

	// applyErr fails ApplyTransition before anything is written.
	applyErr error
}

func newMemBookingStore() *memBookingStore {
	return &memBookingStore{
		bookings: make(map[uuid.UUID]model.Booking),
		parties:  make(map[uuid.UUID]model.Party),
	}
}

func (s *memBookingStore) Create(_ context.Context, booking model.Booking) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	booking.ID = uuid.New()
	booking.CreatedAt = time.Now().UTC()
	booking.UpdatedAt = booking.CreatedAt
	s.bookings[booking.ID] = booking
	return &booking, nil
}

func (s *memBookingStore) Get(_ context.Context, id uuid.UUID) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	booking, ok := s.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &booking, nil
}

func (s *memBookingStore) ListForUser(_ context.Context, userID uuid.UUID) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []model.Booking
	for _, booking := range s.bookings {
		if booking.Party(userID) {
			result = append(result, booking)
		}
	}
	return result, nil
}

func (s *memBookingStore) ListAll(_ context.Context) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]model.Booking, 0, len(s.bookings))
	for _, booking := range s.bookings {
		result = append(result, booking)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *memBookingStore) ApplyTransition(_ context.Context, tr model.BookingTransition) (bool, error) {
	if s.beforeApplyTransition != nil {
		hook := s.beforeApplyTransition
		s.beforeApplyTransition = nil
		hook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applyErr != nil {
		return false, s.applyErr
	}
	booking, ok := s.bookings[tr.BookingID]
	if !ok || booking.State != tr.FromState {
		return false, nil
	}
	booking.State = tr.ToState
	booking.UpdatedAt = time.Now().UTC()
	s.bookings[tr.BookingID] = booking

	tr.ID = uuid.New()
	tr.CreatedAt = time.Now().UTC()
	s.transitions = append(s.transitions, tr)
	return true, nil
}

func (s *memBookingStore) ListTransitions(_ context.Context, bookingID uuid.UUID) ([]model.BookingTransition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []model.BookingTransition
	for _, tr := range s.transitions {
		if tr.BookingID == bookingID {
			result = append(result, tr)
		}
	}
	return result, nil
}

func (s *memBookingStore) GetParty(_ context.Context, userID uuid.UUID) (*model.Party, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	party, ok := s.parties[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &party, nil
}

type memContractStore struct {
	mu         sync.Mutex
	contracts  map[uuid.UUID]model.Contract
	signatures map[uuid.UUID][]model.Signature
}

func newMemContractStore() *memContractStore {
	return &memContractStore{
		contracts:  make(map[uuid.UUID]model.Contract),
		signatures: make(map[uuid.UUID][]model.Signature),
	}
}

func (s *memContractStore) Create(_ context.Context, bookingID uuid.UUID, document []byte) (*model.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for id, contract := range s.contracts {
		if contract.BookingID == bookingID && contract.SupersededAt == nil {
			superseded := now
			contract.SupersededAt = &superseded
			s.contracts[id] = contract
		}
	}
	contract := model.Contract{
		ID:        uuid.New(),
		BookingID: bookingID,
		Document:  document,
		CreatedAt: now,
	}
	s.contracts[contract.ID] = contract
	return &contract, nil
}

func (s *memContractStore) Get(_ context.Context, id uuid.UUID) (*model.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contract, ok := s.contracts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	contract.Signatures = append([]model.Signature(nil), s.signatures[id]...)
	return &contract, nil
}

func (s *memContractStore) CurrentForBooking(_ context.Context, bookingID uuid.UUID) (*model.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, contract := range s.contracts {
		if contract.BookingID == bookingID && contract.SupersededAt == nil {
			contract.Signatures = append([]model.Signature(nil), s.signatures[id]...)
			return &contract, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memContractStore) AddSignature(_ context.Context, sig model.Signature) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.signatures[sig.ContractID] {
		if existing.SignerRole == sig.SignerRole {
			return false, nil
		}
	}
	sig.ID = uuid.New()
	sig.SignedAt = time.Now().UTC()
	s.signatures[sig.ContractID] = append(s.signatures[sig.ContractID], sig)
	return true, nil
}

type memNotificationStore struct {
	mu            sync.Mutex
	notifications []model.Notification
	seq           int
}

func newMemNotificationStore() *memNotificationStore {
	return &memNotificationStore{}
}

func (s *memNotificationStore) Append(_ context.Context, recipientID uuid.UUID, notifType model.NotificationType, payload json.RawMessage) (*model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	notification := model.Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Type:        notifType,
		Payload:     payload,
		CreatedAt:   time.Now().UTC().Add(time.Duration(s.seq) * time.Microsecond),
	}
	s.notifications = append(s.notifications, notification)
	return &notification, nil
}

func (s *memNotificationStore) Get(_ context.Context, id uuid.UUID) (*model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, notification := range s.notifications {
		if notification.ID == id {
			return &notification, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memNotificationStore) MarkRead(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, notification := range s.notifications {
		if notification.ID == id && notification.ReadAt == nil {
			now := time.Now().UTC()
			s.notifications[i].ReadAt = &now
		}
	}
	return nil
}

func (s *memNotificationStore) List(_ context.Context, recipientID uuid.UUID, page, pageSize int) (*model.NotificationPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var mine []model.Notification
	for _, notification := range s.notifications {
		if notification.RecipientID == recipientID {
			mine = append(mine, notification)
		}
	}
	sort.Slice(mine, func(i, j int) bool {
		return mine[i].CreatedAt.After(mine[j].CreatedAt)
	})

	total := int64(len(mine))
	start := (page - 1) * pageSize
	if start > len(mine) {
		start = len(mine)
	}
	end := start + pageSize
	if end > len(mine) {
		end = len(mine)
	}
	return &model.NotificationPage{Items: mine[start:end], Total: total}, nil
}

type memConversationStore struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]model.Conversation
	messages      []model.Message
	reads         map[uuid.UUID]map[uuid.UUID]bool
	seq           int
}

func newMemConversationStore() *memConversationStore {
	return &memConversationStore{
		conversations: make(map[uuid.UUID]model.Conversation),
		reads:         make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (s *memConversationStore) GetOrCreate(_ context.Context, clientID, photographerID uuid.UUID) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conversation := range s.conversations {
		if conversation.ClientID == clientID && conversation.PhotographerID == photographerID {
			return &conversation, nil
		}
	}
	conversation := model.Conversation{
		ID:             uuid.New(),
		ClientID:       clientID,
		PhotographerID: photographerID,
		CreatedAt:      time.Now().UTC(),
	}
	s.conversations[conversation.ID] = conversation
	return &conversation, nil
}

func (s *memConversationStore) Get(_ context.Context, id uuid.UUID) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conversation, ok := s.conversations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &conversation, nil
}

func (s *memConversationStore) ListForUser(_ context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []model.Conversation
	for _, conversation := range s.conversations {
		if conversation.Party(userID) {
			result = append(result, conversation)
		}
	}
	return result, nil
}

func (s *memConversationStore) CreateMessage(_ context.Context, msg model.Message) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now().UTC().Add(time.Duration(s.seq) * time.Microsecond)
	s.messages = append(s.messages, msg)
	return &msg, nil
}

func (s *memConversationStore) GetMessage(_ context.Context, id uuid.UUID) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range s.messages {
		if msg.ID == id {
			return &msg, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memConversationStore) ListMessages(_ context.Context, conversationID uuid.UUID) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []model.Message
	for _, msg := range s.messages {
		if msg.ConversationID == conversationID {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (s *memConversationStore) LastMessage(_ context.Context, conversationID uuid.UUID) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].ConversationID == conversationID {
			msg := s.messages[i]
			return &msg, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memConversationStore) ResolveProposal(_ context.Context, messageID uuid.UUID, status model.ProposalStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, msg := range s.messages {
		if msg.ID == messageID {
			if msg.Kind != model.MessageProposal || msg.ProposalStatus != model.ProposalPending {
				return false, nil
			}
			s.messages[i].ProposalStatus = status
			return true, nil
		}
	}
	return false, nil
}

func (s *memConversationStore) MarkConversationRead(_ context.Context, conversationID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range s.messages {
		if msg.ConversationID == conversationID && msg.SenderID != userID {
			if s.reads[msg.ID] == nil {
				s.reads[msg.ID] = make(map[uuid.UUID]bool)
			}
			s.reads[msg.ID][userID] = true
		}
	}
	return nil
}

func (s *memConversationStore) UnreadCount(_ context.Context, conversationID, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, msg := range s.messages {
		if msg.ConversationID == conversationID && msg.SenderID != userID && !s.reads[msg.ID][userID] {
			count++
		}
	}
	return count, nil
}

// recordingLive captures pushed events per user.
type recordingLive struct {
	mu     sync.Mutex
	events map[uuid.UUID][]ws.Event
}

func newRecordingLive() *recordingLive {
	return &recordingLive{events: make(map[uuid.UUID][]ws.Event)}
}

func (l *recordingLive) Publish(userID uuid.UUID, ev ws.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events[userID] = append(l.events[userID], ev)
}

func (l *recordingLive) eventsFor(userID uuid.UUID) []ws.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ws.Event(nil), l.events[userID]...)
}
