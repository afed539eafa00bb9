package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestScorePriority(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
		want        domain.TicketPriority
	}{
		{"urgent keyword wins over high", "System outage", "everything is down", domain.TicketPriorityUrgent},
		{"urgent in description", "Printer", "completely broken since morning", domain.TicketPriorityUrgent},
		{"high keyword", "Login error", "cannot sign in", domain.TicketPriorityHigh},
		{"no internet phrase", "Office", "we have no internet here", domain.TicketPriorityHigh},
		{"low keyword", "How to request a refund", "question about billing", domain.TicketPriorityLow},
		{"no match defaults to medium", "Monitor flickers", "sometimes the screen blinks", domain.TicketPriorityMedium},
		{"case insensitive", "URGENT: help", "", domain.TicketPriorityUrgent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScorePriority(tt.title, tt.description))
		})
	}
}

func TestFindBestAgentEmptyCategory(t *testing.T) {
	users := newFakeUserRepo()
	users.addUser("agent-1", domain.RoleAgent)
	tickets := newFakeTicketRepo()

	svc := NewAssignmentService(users, tickets)

	// agent-1 exists but is not assigned to the category: no fallback.
	got, err := svc.FindBestAgent(context.Background(), "cat-networking")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindBestAgentLeastLoaded(t *testing.T) {
	users := newFakeUserRepo()
	users.addUser("agent-1", domain.RoleAgent)
	users.addUser("agent-2", domain.RoleAgent)
	users.assign("agent-1", "cat-billing")
	users.assign("agent-2", "cat-billing")

	tickets := newFakeTicketRepo()
	agent1 := "agent-1"
	for i := 0; i < 3; i++ {
		require.NoError(t, tickets.Create(context.Background(), &domain.Ticket{
			AgentID: &agent1,
			Status:  domain.TicketStatusAssigned,
		}))
	}

	svc := NewAssignmentService(users, tickets)
	got, err := svc.FindBestAgent(context.Background(), "cat-billing")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "agent-2", *got)
}

func TestFindBestAgentAllIdlePicksLowestID(t *testing.T) {
	users := newFakeUserRepo()
	users.addUser("agent-b", domain.RoleAgent)
	users.addUser("agent-a", domain.RoleAgent)
	users.assign("agent-b", "cat-billing")
	users.assign("agent-a", "cat-billing")

	svc := NewAssignmentService(users, newFakeTicketRepo())
	got, err := svc.FindBestAgent(context.Background(), "cat-billing")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "agent-a", *got)
}

func TestFindBestAgentResolvedTicketsDoNotCount(t *testing.T) {
	users := newFakeUserRepo()
	users.addUser("agent-1", domain.RoleAgent)
	users.addUser("agent-2", domain.RoleAgent)
	users.assign("agent-1", "cat-billing")
	users.assign("agent-2", "cat-billing")

	tickets := newFakeTicketRepo()
	agent1, agent2 := "agent-1", "agent-2"
	for i := 0; i < 5; i++ {
		require.NoError(t, tickets.Create(context.Background(), &domain.Ticket{
			AgentID: &agent1,
			Status:  domain.TicketStatusResolved,
		}))
	}
	require.NoError(t, tickets.Create(context.Background(), &domain.Ticket{
		AgentID: &agent2,
		Status:  domain.TicketStatusInProgress,
	}))

	svc := NewAssignmentService(users, tickets)
	got, err := svc.FindBestAgent(context.Background(), "cat-billing")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "agent-1", *got)
}
