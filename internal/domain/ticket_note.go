package domain

import "time"

// TicketNote is an agent-authored, append-only annotation on a ticket.
type TicketNote struct {
	ID        string
	TicketID  string
	AgentID   string
	Content   string
	CreatedAt time.Time
}
