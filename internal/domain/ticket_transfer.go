package domain

import "time"

// TransferStatus enumerates states of a transfer request.
type TransferStatus string

const (
	TransferStatusPending  TransferStatus = "pending"
	TransferStatusApproved TransferStatus = "approved"
	TransferStatusRejected TransferStatus = "rejected"
)

// TicketTransfer is a proposal to move a ticket between agents,
// subject to admin approval.
type TicketTransfer struct {
	ID           string
	TicketID     string
	FromAgentID  string
	ToAgentID    string
	Reason       string
	Status       TransferStatus
	RequestedAt  time.Time
	ResolvedByID *string
	ResolvedAt   *time.Time
}
