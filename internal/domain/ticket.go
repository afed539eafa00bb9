package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen            TicketStatus = "open"
	TicketStatusAssigned        TicketStatus = "assigned"
	TicketStatusTransferred     TicketStatus = "transferred"
	TicketStatusInProgress      TicketStatus = "in_progress"
	TicketStatusResolved        TicketStatus = "resolved"
	TicketStatusClosed          TicketStatus = "closed"
	TicketStatusReopened        TicketStatus = "reopened"
	TicketStatusRequestedReopen TicketStatus = "requested_reopen"
)

// ActiveStatuses are the states counted toward an agent's workload.
var ActiveStatuses = []TicketStatus{TicketStatusAssigned, TicketStatusInProgress}

// IsTerminal reports whether the status carries a closed_at timestamp.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates urgency derived from ticket content.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID            string
	Code          string
	CreatorID     string
	AgentID       *string
	CategoryID    string
	SubcategoryID *string
	Title         string
	Description   string
	Status        TicketStatus
	Priority      TicketPriority
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ClosedAt      *time.Time
}
