package service

import (
	"context"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

var (
	urgentKeywords = []string{"outage", "critical", "down", "urgent", "broken"}
	highKeywords   = []string{"error", "fail", "slow", "no internet"}
	lowKeywords    = []string{"question", "inquiry", "how to", "request"}
)

// ScorePriority derives ticket priority from its content. Keyword tiers are
// checked in precedence order urgent > high > low; no match yields medium.
func ScorePriority(title, description string) domain.TicketPriority {
	text := strings.ToLower(title + " " + description)
	for _, kw := range urgentKeywords {
		if strings.Contains(text, kw) {
			return domain.TicketPriorityUrgent
		}
	}
	for _, kw := range highKeywords {
		if strings.Contains(text, kw) {
			return domain.TicketPriorityHigh
		}
	}
	for _, kw := range lowKeywords {
		if strings.Contains(text, kw) {
			return domain.TicketPriorityLow
		}
	}
	return domain.TicketPriorityMedium
}

// AssignmentService selects agents for new and transferred tickets.
type AssignmentService struct {
	users   repository.UserRepository
	tickets repository.TicketRepository
}

// NewAssignmentService constructs the service.
func NewAssignmentService(users repository.UserRepository, tickets repository.TicketRepository) *AssignmentService {
	return &AssignmentService{users: users, tickets: tickets}
}

// FindBestAgent picks the category-assigned agent with the fewest active
// tickets. Agents outside the category are never considered, even when the
// category has no assignees at all. Ties, including the all-idle case, break
// on the lowest agent id.
func (s *AssignmentService) FindBestAgent(ctx context.Context, categoryID string) (*string, error) {
	candidates, err := s.users.ListAgentIDsByCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	workloads, err := s.tickets.CountActiveByAgents(ctx, candidates)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(workloads))
	for _, w := range workloads {
		counts[w.AgentID] = w.ActiveTickets
	}

	// candidates arrive ordered by id ascending, so the first minimum wins.
	best := candidates[0]
	bestCount := counts[best]
	for _, id := range candidates[1:] {
		if c := counts[id]; c < bestCount {
			best = id
			bestCount = c
		}
	}
	return &best, nil
}
