package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated     EventType = "ticket_created"
	EventTicketAssigned    EventType = "ticket_assigned"
	EventTicketUnassigned  EventType = "ticket_unassigned"
	EventTicketStatusSet   EventType = "ticket_status_changed"
	EventTicketUpdated     EventType = "ticket_updated"
	EventTicketReopened    EventType = "ticket_reopened"
	EventTicketResolved    EventType = "ticket_resolved"
	EventTransferRequested EventType = "ticket_transfer_requested"
	EventTransferApproved  EventType = "ticket_transfer_approved"
	EventNoteAdded         EventType = "note_added"
)

// Event represents a domain event emitted by the lifecycle engine.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Ticket *domain.Ticket `json:"ticket"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	Ticket  *domain.Ticket `json:"ticket"`
	AgentID string         `json:"agent_id"`
}

// TicketUnassignedPayload payload.
type TicketUnassignedPayload struct {
	Ticket     *domain.Ticket `json:"ticket"`
	OldAgentID string         `json:"old_agent_id"`
}

// TicketStatusSetPayload payload.
type TicketStatusSetPayload struct {
	Ticket    *domain.Ticket      `json:"ticket"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	Ticket    *domain.Ticket `json:"ticket"`
	UpdatedBy string         `json:"updated_by"`
	Changes   string         `json:"changes"`
}

// TicketReopenedPayload payload.
type TicketReopenedPayload struct {
	Ticket *domain.Ticket `json:"ticket"`
}

// TicketResolvedPayload payload.
type TicketResolvedPayload struct {
	Ticket     *domain.Ticket `json:"ticket"`
	ResolvedBy string         `json:"resolved_by"`
}

// TransferRequestedPayload payload.
type TransferRequestedPayload struct {
	Ticket      *domain.Ticket `json:"ticket"`
	FromAgentID string         `json:"from_agent_id"`
	ToAgentID   string         `json:"to_agent_id"`
	RequestedBy string         `json:"requested_by"`
}

// TransferApprovedPayload payload.
type TransferApprovedPayload struct {
	Ticket      *domain.Ticket `json:"ticket"`
	OldAgentID  *string        `json:"old_agent_id,omitempty"`
	NewAgentID  string         `json:"new_agent_id"`
	FromAgentID string         `json:"from_agent_id"`
}

// NoteAddedPayload payload.
type NoteAddedPayload struct {
	Ticket   *domain.Ticket `json:"ticket"`
	AuthorID string         `json:"author_id"`
}
