package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cmms-data/internal/domain"

	"github.com/google/uuid"
)

// PostgresTicketsRepo 工单 Repository 实现
type PostgresTicketsRepo struct {
	db *sql.DB
}

func NewPostgresTicketsRepo(db *sql.DB) *PostgresTicketsRepo {
	return &PostgresTicketsRepo{db: db}
}

var _ TicketsRepository = (*PostgresTicketsRepo)(nil)

const ticketColumns = `
	ticket_id::text, title, description, department, asset_id, priority, status,
	reporter_id, reporter_name, assignee_id, assignee_name, resolved_at, created_at, updated_at`

func scanTicket(row interface{ Scan(...any) error }) (*domain.Ticket, error) {
	var t domain.Ticket
	var description, assetID, assigneeID, assigneeName sql.NullString
	var resolvedAt sql.NullTime
	err := row.Scan(&t.TicketID, &t.Title, &description, &t.Department, &assetID,
		&t.Priority, &t.Status, &t.ReporterID, &t.ReporterName,
		&assigneeID, &assigneeName, &resolvedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Description = description.String
	t.AssetID = assetID.String
	t.AssigneeID = assigneeID.String
	t.AssigneeName = assigneeName.String
	if resolvedAt.Valid {
		at := resolvedAt.Time
		t.ResolvedAt = &at
	}
	return &t, nil
}

func (r *PostgresTicketsRepo) CreateTicket(ctx context.Context, t *domain.Ticket) (string, error) {
	if t.TicketID == "" {
		t.TicketID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tickets (ticket_id, title, description, department, asset_id, priority, status,
			reporter_id, reporter_name, assignee_id, assignee_name, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW(),NOW())`,
		t.TicketID, t.Title, nullIfEmpty(t.Description), t.Department,
		nullIfEmpty(t.AssetID), t.Priority, t.Status,
		t.ReporterID, t.ReporterName, nullIfEmpty(t.AssigneeID), nullIfEmpty(t.AssigneeName),
	)
	if err != nil {
		return "", storeErr("failed to create ticket", err)
	}
	return t.TicketID, nil
}

func (r *PostgresTicketsRepo) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE ticket_id = $1`, ticketID)
	t, err := scanTicket(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("ticket not found: %w", domain.ErrNotFound)
		}
		return nil, storeErr("failed to get ticket", err)
	}
	return t, nil
}

func (r *PostgresTicketsRepo) ListTickets(ctx context.Context, filters *TicketFilters, page, size int) ([]*domain.Ticket, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	argN := 1
	if filters != nil {
		if filters.Department != "" {
			where = append(where, fmt.Sprintf("department = $%d", argN))
			args = append(args, filters.Department)
			argN++
		}
		if filters.AssetID != "" {
			where = append(where, fmt.Sprintf("asset_id = $%d", argN))
			args = append(args, filters.AssetID)
			argN++
		}
		if filters.Status != "" {
			where = append(where, fmt.Sprintf("status = $%d", argN))
			args = append(args, filters.Status)
			argN++
		}
		if filters.Priority != "" {
			where = append(where, fmt.Sprintf("priority = $%d", argN))
			args = append(args, filters.Priority)
			argN++
		}
		if filters.ReporterID != "" {
			where = append(where, fmt.Sprintf("reporter_id = $%d", argN))
			args = append(args, filters.ReporterID)
			argN++
		}
		if filters.AssigneeID != "" {
			where = append(where, fmt.Sprintf("assignee_id = $%d", argN))
			args = append(args, filters.AssigneeID)
			argN++
		}
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tickets WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, storeErr("failed to count tickets", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		ticketColumns, whereClause, argN, argN+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, storeErr("failed to list tickets", err)
	}
	defer rows.Close()

	items := []*domain.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, 0, storeErr("failed to scan ticket", err)
		}
		items = append(items, t)
	}
	return items, total, storeErr("failed to list tickets", rows.Err())
}

func (r *PostgresTicketsRepo) UpdateTicket(ctx context.Context, t *domain.Ticket) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tickets SET
			title = $2, description = $3, priority = $4, status = $5,
			assignee_id = $6, assignee_name = $7, resolved_at = $8, updated_at = NOW()
		WHERE ticket_id = $1`,
		t.TicketID, t.Title, nullIfEmpty(t.Description), t.Priority, t.Status,
		nullIfEmpty(t.AssigneeID), nullIfEmpty(t.AssigneeName), t.ResolvedAt,
	)
	if err != nil {
		return storeErr("failed to update ticket", err)
	}
	return requireRow(res, domain.ErrNotFound)
}

func (r *PostgresTicketsRepo) DeleteTicket(ctx context.Context, ticketID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM tickets WHERE ticket_id = $1`, ticketID)
	if err != nil {
		return storeErr("failed to delete ticket", err)
	}
	return requireRow(res, domain.ErrNotFound)
}

func (r *PostgresTicketsRepo) Stats(ctx context.Context, department string) (*TicketStats, error) {
	where := "TRUE"
	args := []any{}
	if department != "" {
		where = "department = $1"
		args = append(args, department)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, priority, COUNT(*) FROM tickets WHERE `+where+` GROUP BY 1, 2`, args...)
	if err != nil {
		return nil, storeErr("failed to aggregate tickets", err)
	}
	defer rows.Close()

	stats := &TicketStats{ByStatus: map[string]int{}, ByPriority: map[string]int{}}
	for rows.Next() {
		var status, priority string
		var count int
		if err := rows.Scan(&status, &priority, &count); err != nil {
			return nil, storeErr("failed to scan ticket stats", err)
		}
		stats.Total += count
		stats.ByStatus[status] += count
		stats.ByPriority[priority] += count
	}
	return stats, storeErr("failed to aggregate tickets", rows.Err())
}
