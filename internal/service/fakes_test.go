package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// In-memory repository fakes backing the service tests.

type fakeTicketRepo struct {
	seq     int
	tickets map[string]*domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	f.seq++
	ticket.ID = fmt.Sprintf("ticket-%d", f.seq)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	stored := *ticket
	f.tickets[ticket.ID] = &stored
	return nil
}

func (f *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := f.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	stored := *ticket
	f.tickets[ticket.ID] = &stored
	return nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copy := *ticket
	return &copy, nil
}

func (f *fakeTicketRepo) GetByCode(_ context.Context, code string) (*domain.Ticket, error) {
	for _, ticket := range f.tickets {
		if ticket.Code == code {
			copy := *ticket
			return &copy, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range f.tickets {
		if filter.CreatorID != nil && ticket.CreatorID != *filter.CreatorID {
			continue
		}
		if filter.AgentID != nil && (ticket.AgentID == nil || *ticket.AgentID != *filter.AgentID) {
			continue
		}
		result = append(result, *ticket)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeTicketRepo) CountActiveByAgents(_ context.Context, agentIDs []string) ([]repository.AgentWorkload, error) {
	counts := make(map[string]int64)
	active := make(map[domain.TicketStatus]struct{})
	for _, s := range domain.ActiveStatuses {
		active[s] = struct{}{}
	}
	for _, ticket := range f.tickets {
		if ticket.AgentID == nil {
			continue
		}
		if _, ok := active[ticket.Status]; !ok {
			continue
		}
		for _, id := range agentIDs {
			if *ticket.AgentID == id {
				counts[id]++
			}
		}
	}
	var result []repository.AgentWorkload
	for id, count := range counts {
		result = append(result, repository.AgentWorkload{AgentID: id, ActiveTickets: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ActiveTickets != result[j].ActiveTickets {
			return result[i].ActiveTickets < result[j].ActiveTickets
		}
		return result[i].AgentID < result[j].AgentID
	})
	return result, nil
}

type fakeUserRepo struct {
	users       map[string]*domain.User
	assignments map[string]map[string]struct{} // categoryID -> agent ids
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:       make(map[string]*domain.User),
		assignments: make(map[string]map[string]struct{}),
	}
}

func (f *fakeUserRepo) addUser(id string, role domain.UserRole) {
	f.users[id] = &domain.User{ID: id, Name: id, Email: id + "@example.com", Role: role}
}

func (f *fakeUserRepo) assign(agentID, categoryID string) {
	if f.assignments[categoryID] == nil {
		f.assignments[categoryID] = make(map[string]struct{})
	}
	f.assignments[categoryID][agentID] = struct{}{}
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	user.ID = fmt.Sprintf("user-%d", len(f.users)+1)
	user.CreatedAt = time.Now()
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) ListByRole(_ context.Context, role domain.UserRole) ([]domain.User, error) {
	var result []domain.User
	for _, user := range f.users {
		if user.Role == role {
			result = append(result, *user)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeUserRepo) ListAgentIDsByCategory(_ context.Context, categoryID string) ([]string, error) {
	var ids []string
	for id := range f.assignments[categoryID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeUserRepo) AssignCategory(_ context.Context, agentID, categoryID string) error {
	f.assign(agentID, categoryID)
	return nil
}

type fakeCategoryRepo struct {
	categories    map[string]*domain.Category
	subcategories map[string]*domain.Subcategory
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{
		categories:    make(map[string]*domain.Category),
		subcategories: make(map[string]*domain.Subcategory),
	}
}

func (f *fakeCategoryRepo) addCategory(id, name string) {
	f.categories[id] = &domain.Category{ID: id, Name: name}
}

func (f *fakeCategoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	category, ok := f.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return category, nil
}

func (f *fakeCategoryRepo) GetSubcategoryByID(_ context.Context, id string) (*domain.Subcategory, error) {
	sub, ok := f.subcategories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return sub, nil
}

func (f *fakeCategoryRepo) List(_ context.Context) ([]domain.Category, error) {
	var result []domain.Category
	for _, category := range f.categories {
		result = append(result, *category)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

type fakeTransferRepo struct {
	seq       int
	transfers map[string]*domain.TicketTransfer
}

func newFakeTransferRepo() *fakeTransferRepo {
	return &fakeTransferRepo{transfers: make(map[string]*domain.TicketTransfer)}
}

func (f *fakeTransferRepo) Create(_ context.Context, transfer *domain.TicketTransfer) error {
	f.seq++
	transfer.ID = fmt.Sprintf("transfer-%d", f.seq)
	transfer.RequestedAt = time.Now()
	stored := *transfer
	f.transfers[transfer.ID] = &stored
	return nil
}

func (f *fakeTransferRepo) Update(_ context.Context, transfer *domain.TicketTransfer) error {
	if _, ok := f.transfers[transfer.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *transfer
	f.transfers[transfer.ID] = &stored
	return nil
}

func (f *fakeTransferRepo) GetByID(_ context.Context, id string) (*domain.TicketTransfer, error) {
	transfer, ok := f.transfers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copy := *transfer
	return &copy, nil
}

func (f *fakeTransferRepo) List(_ context.Context, _, _ int) ([]domain.TicketTransfer, error) {
	var result []domain.TicketTransfer
	for _, transfer := range f.transfers {
		result = append(result, *transfer)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeTransferRepo) ListByAgent(_ context.Context, agentID string, _, _ int) ([]domain.TicketTransfer, error) {
	var result []domain.TicketTransfer
	for _, transfer := range f.transfers {
		if transfer.FromAgentID == agentID || transfer.ToAgentID == agentID {
			result = append(result, *transfer)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeTransferRepo) HasPendingForTicket(_ context.Context, ticketID string) (bool, error) {
	for _, transfer := range f.transfers {
		if transfer.TicketID == ticketID && transfer.Status == domain.TransferStatusPending {
			return true, nil
		}
	}
	return false, nil
}

type fakeNoteRepo struct {
	seq   int
	notes []domain.TicketNote
}

func (f *fakeNoteRepo) Create(_ context.Context, note *domain.TicketNote) error {
	f.seq++
	note.ID = fmt.Sprintf("note-%d", f.seq)
	note.CreatedAt = time.Now()
	f.notes = append(f.notes, *note)
	return nil
}

func (f *fakeNoteRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketNote, error) {
	var result []domain.TicketNote
	for i := len(f.notes) - 1; i >= 0; i-- {
		if f.notes[i].TicketID == ticketID {
			result = append(result, f.notes[i])
		}
	}
	return result, nil
}

type fakeNotificationRepo struct {
	seq           int
	failCreate    bool
	failMarkRead  error
	notifications []domain.Notification
}

func (f *fakeNotificationRepo) Create(_ context.Context, notification *domain.Notification) error {
	if f.failCreate {
		return fmt.Errorf("store unavailable")
	}
	f.seq++
	notification.ID = fmt.Sprintf("notification-%d", f.seq)
	notification.CreatedAt = time.Now()
	f.notifications = append(f.notifications, *notification)
	return nil
}

func (f *fakeNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, _, _ int) ([]domain.Notification, error) {
	var result []domain.Notification
	for i := len(f.notifications) - 1; i >= 0; i-- {
		n := f.notifications[i]
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		result = append(result, n)
	}
	return result, nil
}

func (f *fakeNotificationRepo) MarkRead(_ context.Context, id, userID string) (*domain.Notification, error) {
	if f.failMarkRead != nil {
		return nil, f.failMarkRead
	}
	for i := range f.notifications {
		if f.notifications[i].ID == id && f.notifications[i].UserID == userID {
			f.notifications[i].IsRead = true
			copy := f.notifications[i]
			return &copy, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeNotificationRepo) MarkAllRead(_ context.Context, userID string) (int64, error) {
	var updated int64
	for i := range f.notifications {
		if f.notifications[i].UserID == userID && !f.notifications[i].IsRead {
			f.notifications[i].IsRead = true
			updated++
		}
	}
	return updated, nil
}

func (f *fakeNotificationRepo) Delete(_ context.Context, id, userID string) (bool, error) {
	for i := range f.notifications {
		if f.notifications[i].ID == id && f.notifications[i].UserID == userID {
			f.notifications = append(f.notifications[:i], f.notifications[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeNotificationRepo) StatsByUser(_ context.Context, userID string) (domain.NotificationStats, error) {
	var stats domain.NotificationStats
	for _, n := range f.notifications {
		if n.UserID != userID {
			continue
		}
		stats.Total++
		if !n.IsRead {
			stats.Unread++
		}
	}
	return stats, nil
}

func (f *fakeNotificationRepo) recipientsOf(typ domain.NotificationType) []string {
	var ids []string
	for _, n := range f.notifications {
		if n.Type == typ {
			ids = append(ids, n.UserID)
		}
	}
	sort.Strings(ids)
	return ids
}
