package domain

import "time"

// Message is one chat line in a ticket conversation, append-only,
// ordered by creation time ascending.
type Message struct {
	ID        string
	TicketID  string
	SenderID  string
	Content   string
	CreatedAt time.Time
}
