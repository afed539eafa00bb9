package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

type notifierEnv struct {
	users         *fakeUserRepo
	notifications *fakeNotificationRepo
	dispatcher    events.Dispatcher
}

func newNotifierEnv(t *testing.T) *notifierEnv {
	t.Helper()
	env := &notifierEnv{
		users:         newFakeUserRepo(),
		notifications: &fakeNotificationRepo{},
		dispatcher:    events.NewInMemoryDispatcher(zap.NewNop()),
	}
	env.users.addUser("user-1", domain.RoleUser)
	env.users.addUser("agent-1", domain.RoleAgent)
	env.users.addUser("agent-2", domain.RoleAgent)
	env.users.addUser("admin-1", domain.RoleAdmin)
	env.users.addUser("admin-2", domain.RoleAdmin)

	notifier := NewNotifier(env.notifications, env.users, nil, zap.NewNop())
	notifier.RegisterHandlers(env.dispatcher)
	return env
}

func sampleTicket(agentID *string) *domain.Ticket {
	return &domain.Ticket{
		ID:        "ticket-1",
		Code:      "TKT-SAMPLE01",
		CreatorID: "user-1",
		AgentID:   agentID,
		Status:    domain.TicketStatusOpen,
		Title:     "printer jam",
	}
}

func (e *notifierEnv) publish(t *testing.T, typ events.EventType, payload interface{}) {
	t.Helper()
	err := e.dispatcher.Publish(context.Background(), events.Event{
		ID:       "event-1",
		Type:     typ,
		TicketID: "ticket-1",
		Payload:  payload,
	})
	require.NoError(t, err)
}

func TestNotifierTicketCreatedReachesAllStaff(t *testing.T) {
	env := newNotifierEnv(t)

	env.publish(t, events.EventTicketCreated, events.TicketCreatedPayload{Ticket: sampleTicket(nil)})

	assert.Equal(t, []string{"admin-1", "admin-2", "agent-1", "agent-2"},
		env.notifications.recipientsOf(domain.NotificationTicketCreated))
}

func TestNotifierStatusChangedCreatorAndAgent(t *testing.T) {
	env := newNotifierEnv(t)
	agent := "agent-1"

	env.publish(t, events.EventTicketStatusSet, events.TicketStatusSetPayload{
		Ticket:    sampleTicket(&agent),
		OldStatus: domain.TicketStatusOpen,
		NewStatus: domain.TicketStatusAssigned,
	})

	assert.Equal(t, []string{"agent-1", "user-1"},
		env.notifications.recipientsOf(domain.NotificationTicketStatusChanged))
}

func TestNotifierUpdatedSkipsUpdater(t *testing.T) {
	env := newNotifierEnv(t)
	agent := "agent-1"

	// the creator edited their own ticket, so only the agent hears about it.
	env.publish(t, events.EventTicketUpdated, events.TicketUpdatedPayload{
		Ticket:    sampleTicket(&agent),
		UpdatedBy: "user-1",
		Changes:   "title",
	})

	assert.Equal(t, []string{"agent-1"},
		env.notifications.recipientsOf(domain.NotificationTicketUpdated))
}

func TestNotifierTransferRequestedExcludesRequester(t *testing.T) {
	env := newNotifierEnv(t)
	agent := "agent-1"

	env.publish(t, events.EventTransferRequested, events.TransferRequestedPayload{
		Ticket:      sampleTicket(&agent),
		FromAgentID: "agent-1",
		ToAgentID:   "agent-2",
		RequestedBy: "agent-1",
	})

	recipients := env.notifications.recipientsOf(domain.NotificationTicketTransferRequested)
	assert.Equal(t, []string{"admin-1", "admin-2", "agent-2"}, recipients)
}

func TestNotifierResolvedCreatorOnly(t *testing.T) {
	env := newNotifierEnv(t)
	agent := "agent-1"

	env.publish(t, events.EventTicketResolved, events.TicketResolvedPayload{
		Ticket:     sampleTicket(&agent),
		ResolvedBy: "admin-1",
	})

	assert.Equal(t, []string{"user-1"},
		env.notifications.recipientsOf(domain.NotificationTicketResolved))
}

func TestNotifierFailuresStayInsideDispatcher(t *testing.T) {
	env := newNotifierEnv(t)
	env.notifications.failCreate = true

	// Publish never surfaces handler errors to the caller.
	err := env.dispatcher.Publish(context.Background(), events.Event{
		ID:      "event-1",
		Type:    events.EventTicketResolved,
		Payload: events.TicketResolvedPayload{Ticket: sampleTicket(nil), ResolvedBy: "admin-1"},
	})
	assert.NoError(t, err)
	assert.Empty(t, env.notifications.recipientsOf(domain.NotificationTicketResolved))
}
