package service

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/hub"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// MessageService persists ticket chat and fans messages out to the live
// room and the global feed. Only the ticket's creator and its assigned
// agent may read or write a conversation; admins are barred for privacy.
type MessageService struct {
	messages repository.MessageRepository
	tickets  *TicketService
	hub      *hub.Hub
}

// NewMessageService constructs the service.
func NewMessageService(messages repository.MessageRepository, tickets *TicketService, h *hub.Hub) *MessageService {
	return &MessageService{messages: messages, tickets: tickets, hub: h}
}

// PostMessage stores a chat line and broadcasts it. The row is committed
// before any live delivery is attempted; broadcast failures only prune
// connections.
func (s *MessageService) PostMessage(ctx context.Context, actor domain.Identity, ticketID, content string) (*domain.Message, error) {
	if err := s.authorize(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("message content required", nil)
	}

	message := &domain.Message{
		TicketID: ticketID,
		SenderID: actor.UserID,
		Content:  content,
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, err
	}

	frame := map[string]interface{}{
		"type":       "message",
		"ticketId":   ticketID,
		"messageId":  message.ID,
		"senderId":   actor.UserID,
		"senderName": actor.Name,
		"content":    content,
		"timestamp":  message.CreatedAt.Format(time.RFC3339),
	}
	s.hub.BroadcastToRoom(ticketID, frame, actor.UserID)
	s.hub.BroadcastGlobal(frame)
	return message, nil
}

// ListMessages returns the conversation, oldest first.
func (s *MessageService) ListMessages(ctx context.Context, actor domain.Identity, ticketID string, limit, offset int) ([]domain.Message, error) {
	if err := s.authorize(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	return s.messages.ListByTicket(ctx, ticketID, limit, offset)
}

func (s *MessageService) authorize(ctx context.Context, actor domain.Identity, ticketID string) error {
	allowed, err := s.tickets.CanAccessTicketChannel(ctx, actor, ticketID)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.NewForbidden("only the ticket creator or assigned agent may use this conversation")
	}
	return nil
}
