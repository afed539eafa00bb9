package repository

import (
	"context"
	"fmt"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TransferRepository encapsulates transfer-request persistence.
type TransferRepository interface {
	Create(ctx context.Context, transfer *domain.TicketTransfer) error
	Update(ctx context.Context, transfer *domain.TicketTransfer) error
	GetByID(ctx context.Context, id string) (*domain.TicketTransfer, error)
	List(ctx context.Context, limit, offset int) ([]domain.TicketTransfer, error)
	ListByAgent(ctx context.Context, agentID string, limit, offset int) ([]domain.TicketTransfer, error)
	HasPendingForTicket(ctx context.Context, ticketID string) (bool, error)
}

type transferRepository struct {
	pool *pgxpool.Pool
}

// NewTransferRepository instantiates repository.
func NewTransferRepository(pool *pgxpool.Pool) TransferRepository {
	return &transferRepository{pool: pool}
}

const transferColumns = `id, ticket_id, from_agent_id, to_agent_id, reason, status, requested_at, resolved_by_id, resolved_at`

func (r *transferRepository) Create(ctx context.Context, transfer *domain.TicketTransfer) error {
	const query = `
        INSERT INTO ticket_transfers (ticket_id, from_agent_id, to_agent_id, reason, status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, requested_at`
	return r.pool.QueryRow(ctx, query,
		transfer.TicketID,
		transfer.FromAgentID,
		transfer.ToAgentID,
		transfer.Reason,
		transfer.Status,
	).Scan(&transfer.ID, &transfer.RequestedAt)
}

func (r *transferRepository) Update(ctx context.Context, transfer *domain.TicketTransfer) error {
	const query = `
        UPDATE ticket_transfers SET status=$1, resolved_by_id=$2, resolved_at=$3
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query,
		transfer.Status,
		transfer.ResolvedByID,
		transfer.ResolvedAt,
		transfer.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *transferRepository) GetByID(ctx context.Context, id string) (*domain.TicketTransfer, error) {
	query := `SELECT ` + transferColumns + ` FROM ticket_transfers WHERE id=$1`
	var transfer domain.TicketTransfer
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&transfer.ID,
		&transfer.TicketID,
		&transfer.FromAgentID,
		&transfer.ToAgentID,
		&transfer.Reason,
		&transfer.Status,
		&transfer.RequestedAt,
		&transfer.ResolvedByID,
		&transfer.ResolvedAt,
	); err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (r *transferRepository) List(ctx context.Context, limit, offset int) ([]domain.TicketTransfer, error) {
	return r.list(ctx, "1=1", nil, limit, offset)
}

func (r *transferRepository) ListByAgent(ctx context.Context, agentID string, limit, offset int) ([]domain.TicketTransfer, error) {
	return r.list(ctx, "(from_agent_id=$1 OR to_agent_id=$1)", []any{agentID}, limit, offset)
}

func (r *transferRepository) list(ctx context.Context, clause string, args []any, limit, offset int) ([]domain.TicketTransfer, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`SELECT %s FROM ticket_transfers WHERE %s ORDER BY requested_at DESC LIMIT %d OFFSET %d`,
		transferColumns, clause, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketTransfer
	for rows.Next() {
		var transfer domain.TicketTransfer
		if err := rows.Scan(
			&transfer.ID,
			&transfer.TicketID,
			&transfer.FromAgentID,
			&transfer.ToAgentID,
			&transfer.Reason,
			&transfer.Status,
			&transfer.RequestedAt,
			&transfer.ResolvedByID,
			&transfer.ResolvedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, transfer)
	}
	return result, rows.Err()
}

func (r *transferRepository) HasPendingForTicket(ctx context.Context, ticketID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM ticket_transfers WHERE ticket_id=$1 AND status=$2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, ticketID, domain.TransferStatusPending).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
