package domain

import "time"

// NotificationType is the closed enumeration of notifiable event kinds.
type NotificationType string

const (
	NotificationTicketCreated           NotificationType = "ticket_created"
	NotificationTicketAssigned          NotificationType = "ticket_assigned"
	NotificationTicketStatusChanged     NotificationType = "ticket_status_changed"
	NotificationTicketUpdated           NotificationType = "ticket_updated"
	NotificationTicketReopened          NotificationType = "ticket_reopened"
	NotificationTicketResolved          NotificationType = "ticket_resolved"
	NotificationTicketTransferRequested NotificationType = "ticket_transfer_requested"
	NotificationTicketTransferApproved  NotificationType = "ticket_transfer_approved"
	NotificationNoteAdded               NotificationType = "note_added"
)

// Notification is a per-user inbox row created by the fan-out and
// mutated only by its owning user.
type Notification struct {
	ID        string
	UserID    string
	TicketID  *string
	Type      NotificationType
	Title     string
	Message   string
	IsRead    bool
	CreatedAt time.Time
}

// NotificationStats summarizes a user's inbox.
type NotificationStats struct {
	Total  int64
	Unread int64
}
