package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketService owns the ticket and transfer-request state machines. Every
// mutation commits the entity change first and only then publishes events;
// the dispatcher isolates handler failures so notification problems never
// undo a committed change.
type TicketService struct {
	tickets    repository.TicketRepository
	transfers  repository.TransferRepository
	notes      repository.NoteRepository
	users      repository.UserRepository
	categories repository.CategoryRepository
	assignment *AssignmentService
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	TransferRepo repository.TransferRepository
	NoteRepo     repository.NoteRepository
	UserRepo     repository.UserRepository
	CategoryRepo repository.CategoryRepository
	Assignment   *AssignmentService
	Dispatcher   events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	CategoryID    string
	SubcategoryID *string
	Title         string
	Description   string
}

// TicketUpdateInput carries the editable ticket fields. Nil means unchanged.
type TicketUpdateInput struct {
	Title       *string
	Description *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		transfers:  deps.TransferRepo,
		notes:      deps.NoteRepo,
		users:      deps.UserRepo,
		categories: deps.CategoryRepo,
		assignment: deps.Assignment,
		dispatcher: deps.Dispatcher,
	}
}

// CreateTicket scores priority from content, routes to the least-loaded
// category agent when one exists, and persists the ticket.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Identity, input TicketCreateInput) (*domain.Ticket, error) {
	if _, err := s.categories.GetByID(ctx, input.CategoryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"id": input.CategoryID})
		}
		return nil, err
	}
	if input.SubcategoryID != nil {
		sub, err := s.categories.GetSubcategoryByID(ctx, *input.SubcategoryID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("subcategory", map[string]any{"id": *input.SubcategoryID})
			}
			return nil, err
		}
		if sub.CategoryID != input.CategoryID {
			return nil, apperrors.NewValidationError("subcategory does not belong to category", nil)
		}
	}

	agentID, err := s.assignment.FindBestAgent(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Code:          generateTicketCode(),
		CreatorID:     actor.UserID,
		AgentID:       agentID,
		CategoryID:    input.CategoryID,
		SubcategoryID: input.SubcategoryID,
		Title:         strings.TrimSpace(input.Title),
		Description:   strings.TrimSpace(input.Description),
		Status:        domain.TicketStatusOpen,
		Priority:      ScorePriority(input.Title, input.Description),
	}
	if agentID != nil {
		ticket.Status = domain.TicketStatusAssigned
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  actor.UserID,
		Payload:  events.TicketCreatedPayload{Ticket: ticket},
	})
	if agentID != nil {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticket.ID,
			ActorID:  actor.UserID,
			Payload:  events.TicketAssignedPayload{Ticket: ticket, AgentID: *agentID},
		})
	}
	return ticket, nil
}

// GetTicket fetches a ticket the caller is allowed to see.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Identity, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.canView(actor, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// ListTickets returns tickets scoped to the caller's role: users see their
// own, agents their assignments, admins everything.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Identity, filter repository.TicketFilter) ([]domain.Ticket, error) {
	switch actor.Role {
	case domain.RoleUser:
		filter.CreatorID = &actor.UserID
		filter.AgentID = nil
	case domain.RoleAgent:
		filter.AgentID = &actor.UserID
		filter.CreatorID = nil
	}
	return s.tickets.ListWithFilter(ctx, filter)
}

// UpdateTicket edits title/description. Creator or admin only.
func (s *TicketService) UpdateTicket(ctx context.Context, actor domain.Identity, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.CreatorID != actor.UserID && !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("access denied")
	}

	var changes []string
	if input.Title != nil && strings.TrimSpace(*input.Title) != ticket.Title {
		ticket.Title = strings.TrimSpace(*input.Title)
		changes = append(changes, "title")
	}
	if input.Description != nil && strings.TrimSpace(*input.Description) != ticket.Description {
		ticket.Description = strings.TrimSpace(*input.Description)
		changes = append(changes, "description")
	}
	if len(changes) == 0 {
		return ticket, nil
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticket.ID,
		ActorID:  actor.UserID,
		Payload: events.TicketUpdatedPayload{
			Ticket:    ticket,
			UpdatedBy: actor.UserID,
			Changes:   strings.Join(changes, ", "),
		},
	})
	return ticket, nil
}

// SetStatus overwrites the ticket status with any enumerated value. Allowed
// for admins, the assigned agent, and the creator. No transition table is
// enforced here; the specific operations below carry their own guards.
func (s *TicketService) SetStatus(ctx context.Context, actor domain.Identity, ticketID string, status domain.TicketStatus) (*domain.Ticket, error) {
	if !validStatus(status) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.canMutateStatus(actor, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}

	oldStatus := ticket.Status
	ticket.Status = status
	s.syncClosedAt(ticket)
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	if oldStatus != status {
		s.publishStatusChanged(ctx, actor, ticket, oldStatus)
	}
	return ticket, nil
}

// AssignAgent sets the ticket's agent. Admin only; target must hold the
// agent role. Assigning an open ticket moves it to assigned.
func (s *TicketService) AssignAgent(ctx context.Context, actor domain.Identity, ticketID, agentID string) (*domain.Ticket, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("admin required")
	}
	agent, err := s.users.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("agent", map[string]any{"id": agentID})
		}
		return nil, err
	}
	if agent.Role != domain.RoleAgent {
		return nil, apperrors.NewValidationError("target is not an agent", map[string]any{"id": agentID})
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	ticket.AgentID = &agent.ID
	if ticket.Status == domain.TicketStatusOpen {
		oldStatus := ticket.Status
		ticket.Status = domain.TicketStatusAssigned
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return nil, err
		}
		s.publishStatusChanged(ctx, actor, ticket, oldStatus)
	} else if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		ActorID:  actor.UserID,
		Payload:  events.TicketAssignedPayload{Ticket: ticket, AgentID: agent.ID},
	})
	return ticket, nil
}

// UnassignAgent clears the ticket's agent. Admin only. Unassigning an
// assigned ticket moves it back to open.
func (s *TicketService) UnassignAgent(ctx context.Context, actor domain.Identity, ticketID string) (*domain.Ticket, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("admin required")
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.AgentID == nil {
		return nil, apperrors.NewInvalidState("ticket has no assigned agent", nil)
	}
	// an agent-less ticket must sit in open, so unassignment is only legal
	// from the assigned state
	if ticket.Status != domain.TicketStatusAssigned {
		return nil, apperrors.NewInvalidState("only assigned tickets can be unassigned",
			map[string]any{"status": ticket.Status})
	}

	oldAgentID := *ticket.AgentID
	ticket.AgentID = nil
	ticket.Status = domain.TicketStatusOpen
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUnassigned,
		TicketID: ticket.ID,
		ActorID:  actor.UserID,
		Payload:  events.TicketUnassignedPayload{Ticket: ticket, OldAgentID: oldAgentID},
	})
	return ticket, nil
}

// RequestResolution is the assigned agent asking an admin to resolve; the
// ticket parks in in_progress until then.
func (s *TicketService) RequestResolution(ctx context.Context, actor domain.Identity, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.AgentID == nil || *ticket.AgentID != actor.UserID {
		return nil, apperrors.NewForbidden("only the assigned agent may request resolution")
	}
	if ticket.Status == domain.TicketStatusResolved {
		return nil, apperrors.NewInvalidState("ticket already resolved", nil)
	}

	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusInProgress
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	if oldStatus != ticket.Status {
		s.publishStatusChanged(ctx, actor, ticket, oldStatus)
	}
	return ticket, nil
}

// Resolve marks the ticket resolved. Admin only.
func (s *TicketService) Resolve(ctx context.Context, actor domain.Identity, ticketID string) (*domain.Ticket, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("admin required")
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusResolved {
		return nil, apperrors.NewInvalidState("ticket already resolved", nil)
	}

	now := time.Now()
	ticket.Status = domain.TicketStatusResolved
	ticket.ClosedAt = &now
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketResolved,
		TicketID: ticket.ID,
		ActorID:  actor.UserID,
		Payload:  events.TicketResolvedPayload{Ticket: ticket, ResolvedBy: actor.UserID},
	})
	return ticket, nil
}

var closableStatuses = map[domain.TicketStatus]struct{}{
	domain.TicketStatusAssigned:    {},
	domain.TicketStatusInProgress:  {},
	domain.TicketStatusTransferred: {},
	domain.TicketStatusReopened:    {},
}

// CloseTicket closes the ticket, optionally appending a closing note.
// Allowed for admins and the assigned agent, from working states only.
func (s *TicketService) CloseTicket(ctx context.Context, actor domain.Identity, ticketID, note string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && (ticket.AgentID == nil || *ticket.AgentID != actor.UserID) {
		return nil, apperrors.NewForbidden("only admins or the assigned agent may close")
	}
	if _, ok := closableStatuses[ticket.Status]; !ok {
		return nil, apperrors.NewInvalidState("ticket cannot be closed from its current status",
			map[string]any{"status": ticket.Status})
	}

	now := time.Now()
	ticket.Status = domain.TicketStatusClosed
	ticket.ClosedAt = &now
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	if note = strings.TrimSpace(note); note != "" {
		closing := &domain.TicketNote{TicketID: ticket.ID, AgentID: actor.UserID, Content: note}
		if err := s.notes.Create(ctx, closing); err != nil {
			return nil, err
		}
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketResolved,
		TicketID: ticket.ID,
		ActorID:  actor.UserID,
		Payload:  events.TicketResolvedPayload{Ticket: ticket, ResolvedBy: actor.UserID},
	})
	return ticket, nil
}

// Reopen moves a resolved ticket back to open. Admin only.
func (s *TicketService) Reopen(ctx context.Context, actor domain.Identity, ticketID string) (*domain.Ticket, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("admin required")
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusResolved {
		return nil, apperrors.NewInvalidState("only resolved tickets can be reopened",
			map[string]any{"status": ticket.Status})
	}

	ticket.Status = domain.TicketStatusOpen
	ticket.ClosedAt = nil
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketReopened,
		TicketID: ticket.ID,
		ActorID:  actor.UserID,
		Payload:  events.TicketReopenedPayload{Ticket: ticket},
	})
	return ticket, nil
}

// RequestReopen lets the creator ask for a closed ticket to be reopened.
func (s *TicketService) RequestReopen(ctx context.Context, actor domain.Identity, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.CreatorID != actor.UserID {
		return nil, apperrors.NewForbidden("only the creator may request a reopen")
	}
	if ticket.Status != domain.TicketStatusClosed {
		return nil, apperrors.NewInvalidState("only closed tickets can request a reopen",
			map[string]any{"status": ticket.Status})
	}

	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusRequestedReopen
	ticket.ClosedAt = nil
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishStatusChanged(ctx, actor, ticket, oldStatus)
	return ticket, nil
}

// AcceptReopen approves a pending reopen request. Admin only.
func (s *TicketService) AcceptReopen(ctx context.Context, actor domain.Identity, ticketID string) (*domain.Ticket, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("admin required")
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusRequestedReopen {
		return nil, apperrors.NewInvalidState("no reopen request pending",
			map[string]any{"status": ticket.Status})
	}

	ticket.Status = domain.TicketStatusReopened
	ticket.ClosedAt = nil
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketReopened,
		TicketID: ticket.ID,
		ActorID:  actor.UserID,
		Payload:  events.TicketReopenedPayload{Ticket: ticket},
	})
	return ticket, nil
}

// RequestTransfer opens a transfer request. Initiated by the assigned agent,
// or by an admin when the ticket has no agent. One pending request per
// ticket at a time.
func (s *TicketService) RequestTransfer(ctx context.Context, actor domain.Identity, ticketID, toAgentID, reason string) (*domain.TicketTransfer, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewInvalidState("closed or resolved tickets cannot be transferred",
			map[string]any{"status": ticket.Status})
	}
	if ticket.AgentID != nil {
		if *ticket.AgentID != actor.UserID {
			return nil, apperrors.NewForbidden("only the assigned agent may request a transfer")
		}
	} else if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("admin required for unassigned tickets")
	}

	target, err := s.users.GetByID(ctx, toAgentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("agent", map[string]any{"id": toAgentID})
		}
		return nil, err
	}
	if target.Role != domain.RoleAgent {
		return nil, apperrors.NewValidationError("target is not an agent", map[string]any{"id": toAgentID})
	}

	pending, err := s.transfers.HasPendingForTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, apperrors.NewConflict("ticket already has a pending transfer", nil)
	}

	fromAgentID := actor.UserID
	if ticket.AgentID != nil {
		fromAgentID = *ticket.AgentID
	}
	transfer := &domain.TicketTransfer{
		TicketID:    ticket.ID,
		FromAgentID: fromAgentID,
		ToAgentID:   toAgentID,
		Reason:      strings.TrimSpace(reason),
		Status:      domain.TransferStatusPending,
	}
	if err := s.transfers.Create(ctx, transfer); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTransferRequested,
		TicketID: ticket.ID,
		ActorID:  actor.UserID,
		Payload: events.TransferRequestedPayload{
			Ticket:      ticket,
			FromAgentID: transfer.FromAgentID,
			ToAgentID:   transfer.ToAgentID,
			RequestedBy: actor.UserID,
		},
	})
	return transfer, nil
}

// ApproveTransfer approves a pending transfer and hands the ticket to the
// target agent. Admin only; each request resolves exactly once.
func (s *TicketService) ApproveTransfer(ctx context.Context, actor domain.Identity, transferID string) (*domain.TicketTransfer, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("admin required")
	}
	transfer, err := s.getTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if transfer.Status != domain.TransferStatusPending {
		return nil, apperrors.NewInvalidState("transfer is not pending",
			map[string]any{"status": transfer.Status})
	}
	ticket, err := s.getTicket(ctx, transfer.TicketID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	transfer.Status = domain.TransferStatusApproved
	transfer.ResolvedByID = &actor.UserID
	transfer.ResolvedAt = &now
	if err := s.transfers.Update(ctx, transfer); err != nil {
		return nil, err
	}

	oldAgentID := ticket.AgentID
	ticket.AgentID = &transfer.ToAgentID
	ticket.Status = domain.TicketStatusAssigned
	ticket.ClosedAt = nil
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTransferApproved,
		TicketID: ticket.ID,
		ActorID:  actor.UserID,
		Payload: events.TransferApprovedPayload{
			Ticket:      ticket,
			OldAgentID:  oldAgentID,
			NewAgentID:  transfer.ToAgentID,
			FromAgentID: transfer.FromAgentID,
		},
	})
	return transfer, nil
}

// RejectTransfer rejects a pending transfer; the ticket is untouched.
func (s *TicketService) RejectTransfer(ctx context.Context, actor domain.Identity, transferID string) (*domain.TicketTransfer, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("admin required")
	}
	transfer, err := s.getTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if transfer.Status != domain.TransferStatusPending {
		return nil, apperrors.NewInvalidState("transfer is not pending",
			map[string]any{"status": transfer.Status})
	}

	now := time.Now()
	transfer.Status = domain.TransferStatusRejected
	transfer.ResolvedByID = &actor.UserID
	transfer.ResolvedAt = &now
	if err := s.transfers.Update(ctx, transfer); err != nil {
		return nil, err
	}
	return transfer, nil
}

// ListTransfers returns transfer requests: admins see all, agents see those
// they sent or received.
func (s *TicketService) ListTransfers(ctx context.Context, actor domain.Identity, limit, offset int) ([]domain.TicketTransfer, error) {
	switch actor.Role {
	case domain.RoleAdmin:
		return s.transfers.List(ctx, limit, offset)
	case domain.RoleAgent:
		return s.transfers.ListByAgent(ctx, actor.UserID, limit, offset)
	default:
		return nil, apperrors.NewForbidden("agent or admin required")
	}
}

// AddNote appends an agent note to a ticket. Agents and admins only.
func (s *TicketService) AddNote(ctx context.Context, actor domain.Identity, ticketID, content string) (*domain.TicketNote, error) {
	if !actor.IsAgent() && !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("agent or admin required")
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("note content required", nil)
	}

	note := &domain.TicketNote{TicketID: ticket.ID, AgentID: actor.UserID, Content: content}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventNoteAdded,
		TicketID: ticket.ID,
		ActorID:  actor.UserID,
		Payload:  events.NoteAddedPayload{Ticket: ticket, AuthorID: actor.UserID},
	})
	return note, nil
}

// ListNotes returns a ticket's notes, newest first. Agents and admins only.
func (s *TicketService) ListNotes(ctx context.Context, actor domain.Identity, ticketID string) ([]domain.TicketNote, error) {
	if !actor.IsAgent() && !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("agent or admin required")
	}
	if _, err := s.getTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.notes.ListByTicket(ctx, ticketID)
}

// CanAccessTicketChannel reports whether a caller may join the ticket's chat
// room or call pair. Admins are barred from ticket-scoped channels.
func (s *TicketService) CanAccessTicketChannel(ctx context.Context, actor domain.Identity, ticketID string) (bool, error) {
	_, err := s.AuthorizeChannel(ctx, actor, ticketID)
	if err != nil {
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "FORBIDDEN" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// AuthorizeChannel admits the ticket creator as the user side of a channel
// and the assigned agent as the agent side. Everyone else, admins included,
// is rejected.
func (s *TicketService) AuthorizeChannel(ctx context.Context, actor domain.Identity, ticketID string) (domain.UserRole, error) {
	if actor.IsAdmin() {
		return "", apperrors.NewForbidden("admins may not join ticket channels")
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return "", err
	}
	return channelRole(actor, ticket)
}

// AuthorizeCallChannel gates the call pair. Membership rules match the chat
// room, and the ticket must additionally carry an assigned agent so both ends
// of the pair exist.
func (s *TicketService) AuthorizeCallChannel(ctx context.Context, actor domain.Identity, ticketID string) (domain.UserRole, error) {
	if actor.IsAdmin() {
		return "", apperrors.NewForbidden("admins may not join ticket channels")
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return "", err
	}
	if ticket.AgentID == nil {
		return "", apperrors.NewInvalidState("ticket has no assigned agent",
			map[string]any{"status": ticket.Status})
	}
	return channelRole(actor, ticket)
}

func channelRole(actor domain.Identity, ticket *domain.Ticket) (domain.UserRole, error) {
	if ticket.CreatorID == actor.UserID {
		return domain.RoleUser, nil
	}
	if ticket.AgentID != nil && *ticket.AgentID == actor.UserID {
		return domain.RoleAgent, nil
	}
	return "", apperrors.NewForbidden("only the ticket creator or assigned agent may join")
}

func (s *TicketService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) getTransfer(ctx context.Context, transferID string) (*domain.TicketTransfer, error) {
	transfer, err := s.transfers.GetByID(ctx, transferID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("transfer", map[string]any{"id": transferID})
		}
		return nil, err
	}
	return transfer, nil
}

func (s *TicketService) canView(actor domain.Identity, ticket *domain.Ticket) bool {
	if actor.IsAdmin() {
		return true
	}
	if ticket.CreatorID == actor.UserID {
		return true
	}
	return ticket.AgentID != nil && *ticket.AgentID == actor.UserID
}

func (s *TicketService) canMutateStatus(actor domain.Identity, ticket *domain.Ticket) bool {
	return s.canView(actor, ticket)
}

// syncClosedAt keeps the closed timestamp consistent with the status:
// set exactly when the ticket is resolved or closed.
func (s *TicketService) syncClosedAt(ticket *domain.Ticket) {
	if ticket.Status.IsTerminal() {
		if ticket.ClosedAt == nil {
			now := time.Now()
			ticket.ClosedAt = &now
		}
	} else {
		ticket.ClosedAt = nil
	}
}

func (s *TicketService) publishStatusChanged(ctx context.Context, actor domain.Identity, ticket *domain.Ticket, oldStatus domain.TicketStatus) {
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusSet,
		TicketID: ticket.ID,
		ActorID:  actor.UserID,
		Payload: events.TicketStatusSetPayload{
			Ticket:    ticket,
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		},
	})
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

var statusValues = map[domain.TicketStatus]struct{}{
	domain.TicketStatusOpen:            {},
	domain.TicketStatusAssigned:        {},
	domain.TicketStatusTransferred:     {},
	domain.TicketStatusInProgress:      {},
	domain.TicketStatusResolved:        {},
	domain.TicketStatusClosed:          {},
	domain.TicketStatusReopened:        {},
	domain.TicketStatusRequestedReopen: {},
}

func validStatus(status domain.TicketStatus) bool {
	_, ok := statusValues[status]
	return ok
}

func generateTicketCode() string {
	return "TKT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
