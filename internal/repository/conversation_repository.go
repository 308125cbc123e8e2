package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/lensbook/internal/model"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// GetOrCreate returns the single conversation for the pair, creating it on
// first contact. The unique index on (client_id, photographer_id) keeps
// concurrent first messages from creating two threads.
func (r *ConversationRepository) GetOrCreate(ctx context.Context, clientID, photographerID uuid.UUID) (*model.Conversation, error) {
	if err := r.db.WithContext(ctx).Exec(`
		INSERT INTO conversations (client_id, photographer_id)
		VALUES (?, ?)
		ON CONFLICT (client_id, photographer_id) DO NOTHING
	`, clientID, photographerID).Error; err != nil {
		return nil, err
	}

	var conversation model.Conversation
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, client_id, photographer_id, created_at
		FROM conversations
		WHERE client_id = ? AND photographer_id = ?
		LIMIT 1
	`, clientID, photographerID).Scan(&conversation).Error
	if err != nil {
		return nil, err
	}
	if conversation.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &conversation, nil
}

func (r *ConversationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	var conversation model.Conversation
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, client_id, photographer_id, created_at
		FROM conversations
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&conversation).Error
	if err != nil {
		return nil, err
	}
	if conversation.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &conversation, nil
}

func (r *ConversationRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	var conversations []model.Conversation
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, client_id, photographer_id, created_at
		FROM conversations
		WHERE client_id = ? OR photographer_id = ?
		ORDER BY created_at DESC
	`, userID, userID).Scan(&conversations).Error
	if err != nil {
		return nil, err
	}
	return conversations, nil
}

func (r *ConversationRepository) CreateMessage(ctx context.Context, msg model.Message) (*model.Message, error) {
	var proposalStatus interface{}
	if msg.Kind == model.MessageProposal {
		proposalStatus = msg.ProposalStatus
	}

	var saved model.Message
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO messages (
			conversation_id,
			sender_id,
			kind,
			body,
			attachment_url,
			amount_cents,
			currency,
			proposal_status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING
			id,
			conversation_id,
			sender_id,
			kind,
			body,
			attachment_url,
			amount_cents,
			currency,
			proposal_status,
			created_at
	`,
		msg.ConversationID,
		msg.SenderID,
		msg.Kind,
		msg.Body,
		msg.AttachmentURL,
		msg.AmountCents,
		msg.Currency,
		proposalStatus,
	).Scan(&saved).Error
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *ConversationRepository) GetMessage(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	var msg model.Message
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			conversation_id,
			sender_id,
			kind,
			body,
			attachment_url,
			amount_cents,
			currency,
			proposal_status,
			created_at
		FROM messages
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&msg).Error
	if err != nil {
		return nil, err
	}
	if msg.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &msg, nil
}

func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]model.Message, error) {
	var messages []model.Message
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			conversation_id,
			sender_id,
			kind,
			body,
			attachment_url,
			amount_cents,
			currency,
			proposal_status,
			created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC
	`, conversationID).Scan(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *ConversationRepository) LastMessage(ctx context.Context, conversationID uuid.UUID) (*model.Message, error) {
	var msg model.Message
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			conversation_id,
			sender_id,
			kind,
			body,
			attachment_url,
			amount_cents,
			currency,
			proposal_status,
			created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, conversationID).Scan(&msg).Error
	if err != nil {
		return nil, err
	}
	if msg.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &msg, nil
}

// ResolveProposal flips a pending proposal exactly once. Zero rows affected
// means the proposal was already resolved; the caller maps that to an error.
func (r *ConversationRepository) ResolveProposal(ctx context.Context, messageID uuid.UUID, status model.ProposalStatus) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE messages
		SET proposal_status = ?
		WHERE id = ? AND kind = 'PRICE_PROPOSAL' AND proposal_status = 'PENDING'
	`, status, messageID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkConversationRead records read receipts for every counter-party message
// the viewer has not acknowledged yet.
func (r *ConversationRepository) MarkConversationRead(ctx context.Context, conversationID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO message_reads (message_id, user_id)
		SELECT m.id, ?
		FROM messages m
		WHERE m.conversation_id = ? AND m.sender_id <> ?
		ON CONFLICT (message_id, user_id) DO NOTHING
	`, userID, conversationID, userID).Error
}

// UnreadCount derives the viewer's unread count; it is never stored.
func (r *ConversationRepository) UnreadCount(ctx context.Context, conversationID, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*)
		FROM messages m
		WHERE m.conversation_id = ?
			AND m.sender_id <> ?
			AND NOT EXISTS (
				SELECT 1 FROM message_reads mr
				WHERE mr.message_id = m.id AND mr.user_id = ?
			)
	`, conversationID, userID, userID).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
