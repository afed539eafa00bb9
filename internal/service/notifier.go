package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// UnreadCache invalidates a user's cached unread counter after their inbox
// changes. Implemented by NotificationService.
type UnreadCache interface {
	InvalidateUnread(ctx context.Context, userID string)
}

// Notifier maps lifecycle events to per-user notification rows. It runs as
// dispatcher handlers, after the primary mutation has committed; its errors
// are logged by the dispatcher and never reach the caller.
type Notifier struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	cache         UnreadCache
	logger        *zap.Logger
}

// NewNotifier constructs the fan-out.
func NewNotifier(notifications repository.NotificationRepository, users repository.UserRepository, cache UnreadCache, logger *zap.Logger) *Notifier {
	return &Notifier{
		notifications: notifications,
		users:         users,
		cache:         cache,
		logger:        logger,
	}
}

// RegisterHandlers subscribes the fan-out to every lifecycle event.
func (n *Notifier) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	dispatcher.Subscribe(events.EventTicketUnassigned, n.handleTicketUnassigned)
	dispatcher.Subscribe(events.EventTicketStatusSet, n.handleStatusChanged)
	dispatcher.Subscribe(events.EventTicketUpdated, n.handleTicketUpdated)
	dispatcher.Subscribe(events.EventTicketReopened, n.handleTicketReopened)
	dispatcher.Subscribe(events.EventTicketResolved, n.handleTicketResolved)
	dispatcher.Subscribe(events.EventTransferRequested, n.handleTransferRequested)
	dispatcher.Subscribe(events.EventTransferApproved, n.handleTransferApproved)
	dispatcher.Subscribe(events.EventNoteAdded, n.handleNoteAdded)
}

func (n *Notifier) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	ticket := payload.Ticket
	staff, err := n.staffIDs(ctx)
	if err != nil {
		return err
	}
	return n.notifyAll(ctx, staff, ticket.ID, domain.NotificationTicketCreated,
		"New ticket created",
		fmt.Sprintf("Ticket %s: %s", ticket.Code, ticket.Title))
}

func (n *Notifier) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	ticket := payload.Ticket
	return n.notify(ctx, payload.AgentID, ticket.ID, domain.NotificationTicketAssigned,
		"Ticket assigned to you",
		fmt.Sprintf("You have been assigned ticket %s: %s", ticket.Code, ticket.Title))
}

func (n *Notifier) handleTicketUnassigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketUnassignedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	ticket := payload.Ticket
	admins, err := n.users.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return err
	}
	recipients := []string{payload.OldAgentID}
	for _, admin := range admins {
		if admin.ID != payload.OldAgentID {
			recipients = append(recipients, admin.ID)
		}
	}
	return n.notifyAll(ctx, recipients, ticket.ID, domain.NotificationTicketUpdated,
		"Ticket unassigned",
		fmt.Sprintf("Ticket %s is no longer assigned to an agent", ticket.Code))
}

func (n *Notifier) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusSetPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	ticket := payload.Ticket
	recipients := []string{ticket.CreatorID}
	if ticket.AgentID != nil && *ticket.AgentID != ticket.CreatorID {
		recipients = append(recipients, *ticket.AgentID)
	}
	return n.notifyAll(ctx, recipients, ticket.ID, domain.NotificationTicketStatusChanged,
		"Ticket status updated",
		fmt.Sprintf("Ticket %s changed from %s to %s", ticket.Code, payload.OldStatus, payload.NewStatus))
}

func (n *Notifier) handleTicketUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketUpdatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	ticket := payload.Ticket
	var recipients []string
	if ticket.CreatorID != payload.UpdatedBy {
		recipients = append(recipients, ticket.CreatorID)
	}
	if ticket.AgentID != nil && *ticket.AgentID != payload.UpdatedBy && *ticket.AgentID != ticket.CreatorID {
		recipients = append(recipients, *ticket.AgentID)
	}
	return n.notifyAll(ctx, recipients, ticket.ID, domain.NotificationTicketUpdated,
		"Ticket updated",
		fmt.Sprintf("Ticket %s was updated: %s", ticket.Code, payload.Changes))
}

func (n *Notifier) handleTicketReopened(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketReopenedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	ticket := payload.Ticket
	admins, err := n.users.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return err
	}
	var recipients []string
	if ticket.AgentID != nil {
		recipients = append(recipients, *ticket.AgentID)
	}
	for _, admin := range admins {
		if ticket.AgentID == nil || admin.ID != *ticket.AgentID {
			recipients = append(recipients, admin.ID)
		}
	}
	return n.notifyAll(ctx, recipients, ticket.ID, domain.NotificationTicketReopened,
		"Ticket reopened",
		fmt.Sprintf("Ticket %s has been reopened", ticket.Code))
}

func (n *Notifier) handleTicketResolved(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketResolvedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	ticket := payload.Ticket
	return n.notify(ctx, ticket.CreatorID, ticket.ID, domain.NotificationTicketResolved,
		"Ticket resolved",
		fmt.Sprintf("Your ticket %s has been resolved", ticket.Code))
}

func (n *Notifier) handleTransferRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TransferRequestedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	ticket := payload.Ticket
	admins, err := n.users.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return err
	}
	recipients := []string{payload.ToAgentID}
	for _, admin := range admins {
		if admin.ID != payload.RequestedBy && admin.ID != payload.ToAgentID {
			recipients = append(recipients, admin.ID)
		}
	}
	return n.notifyAll(ctx, recipients, ticket.ID, domain.NotificationTicketTransferRequested,
		"Ticket transfer requested",
		fmt.Sprintf("A transfer of ticket %s has been requested", ticket.Code))
}

func (n *Notifier) handleTransferApproved(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TransferApprovedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	ticket := payload.Ticket
	admins, err := n.users.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return err
	}
	recipients := []string{payload.NewAgentID, payload.FromAgentID}
	for _, admin := range admins {
		if admin.ID != payload.NewAgentID && admin.ID != payload.FromAgentID {
			recipients = append(recipients, admin.ID)
		}
	}
	return n.notifyAll(ctx, recipients, ticket.ID, domain.NotificationTicketTransferApproved,
		"Ticket transferred",
		fmt.Sprintf("Ticket %s has been transferred to a new agent", ticket.Code))
}

func (n *Notifier) handleNoteAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.NoteAddedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	ticket := payload.Ticket
	staff, err := n.staffIDs(ctx)
	if err != nil {
		return err
	}
	recipients := staff[:0:0]
	for _, id := range staff {
		if id != payload.AuthorID {
			recipients = append(recipients, id)
		}
	}
	return n.notifyAll(ctx, recipients, ticket.ID, domain.NotificationNoteAdded,
		"Note added",
		fmt.Sprintf("A note was added to ticket %s", ticket.Code))
}

// staffIDs returns every agent and admin id, deduplicated.
func (n *Notifier) staffIDs(ctx context.Context) ([]string, error) {
	agents, err := n.users.ListByRole(ctx, domain.RoleAgent)
	if err != nil {
		return nil, err
	}
	admins, err := n.users.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(agents)+len(admins))
	ids := make([]string, 0, len(agents)+len(admins))
	for _, u := range append(agents, admins...) {
		if _, ok := seen[u.ID]; ok {
			continue
		}
		seen[u.ID] = struct{}{}
		ids = append(ids, u.ID)
	}
	return ids, nil
}

func (n *Notifier) notifyAll(ctx context.Context, userIDs []string, ticketID string, typ domain.NotificationType, title, message string) error {
	var firstErr error
	for _, userID := range userIDs {
		if err := n.notify(ctx, userID, ticketID, typ, title, message); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (n *Notifier) notify(ctx context.Context, userID, ticketID string, typ domain.NotificationType, title, message string) error {
	notification := &domain.Notification{
		UserID:   userID,
		TicketID: &ticketID,
		Type:     typ,
		Title:    title,
		Message:  message,
	}
	if err := n.notifications.Create(ctx, notification); err != nil {
		n.logger.Warn("notification create failed",
			zap.String("user_id", userID),
			zap.String("type", string(typ)),
			zap.Error(err))
		return err
	}
	if n.cache != nil {
		n.cache.InvalidateUnread(ctx, userID)
	}
	return nil
}
