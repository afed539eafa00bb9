package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest is the ticket creation payload.
type CreateTicketRequest struct {
	CategoryID    string  `json:"category_id"`
	SubcategoryID *string `json:"subcategory_id,omitempty"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
}

// UpdateTicketRequest carries editable fields; omitted fields are unchanged.
type UpdateTicketRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// SetStatusRequest overwrites the ticket status.
type SetStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// AssignAgentRequest sets the ticket's agent.
type AssignAgentRequest struct {
	AgentID string `json:"agent_id"`
}

// CloseTicketRequest closes a ticket with an optional note.
type CloseTicketRequest struct {
	Note string `json:"note,omitempty"`
}

// RequestTransferRequest opens a transfer request.
type RequestTransferRequest struct {
	ToAgentID string `json:"to_agent_id"`
	Reason    string `json:"reason,omitempty"`
}

// CreateNoteRequest appends an agent note.
type CreateNoteRequest struct {
	Content string `json:"content"`
}

// TicketResponse is the wire shape of a ticket.
type TicketResponse struct {
	ID            string     `json:"id"`
	Code          string     `json:"code"`
	CreatorID     string     `json:"creator_id"`
	AgentID       *string    `json:"agent_id,omitempty"`
	CategoryID    string     `json:"category_id"`
	SubcategoryID *string    `json:"subcategory_id,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:            t.ID,
		Code:          t.Code,
		CreatorID:     t.CreatorID,
		AgentID:       t.AgentID,
		CategoryID:    t.CategoryID,
		SubcategoryID: t.SubcategoryID,
		Title:         t.Title,
		Description:   t.Description,
		Status:        string(t.Status),
		Priority:      string(t.Priority),
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		ClosedAt:      t.ClosedAt,
	}
}

// TransferResponse is the wire shape of a transfer request.
type TransferResponse struct {
	ID           string     `json:"id"`
	TicketID     string     `json:"ticket_id"`
	FromAgentID  string     `json:"from_agent_id"`
	ToAgentID    string     `json:"to_agent_id"`
	Reason       string     `json:"reason"`
	Status       string     `json:"status"`
	RequestedAt  time.Time  `json:"requested_at"`
	ResolvedByID *string    `json:"resolved_by_id,omitempty"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

// NewTransferResponse maps a domain transfer.
func NewTransferResponse(t *domain.TicketTransfer) TransferResponse {
	return TransferResponse{
		ID:           t.ID,
		TicketID:     t.TicketID,
		FromAgentID:  t.FromAgentID,
		ToAgentID:    t.ToAgentID,
		Reason:       t.Reason,
		Status:       string(t.Status),
		RequestedAt:  t.RequestedAt,
		ResolvedByID: t.ResolvedByID,
		ResolvedAt:   t.ResolvedAt,
	}
}

// NoteResponse is the wire shape of a ticket note.
type NoteResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	AgentID   string    `json:"agent_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNoteResponse maps a domain note.
func NewNoteResponse(n *domain.TicketNote) NoteResponse {
	return NoteResponse{
		ID:        n.ID,
		TicketID:  n.TicketID,
		AgentID:   n.AgentID,
		Content:   n.Content,
		CreatedAt: n.CreatedAt,
	}
}
