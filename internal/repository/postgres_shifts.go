package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cmms-data/internal/domain"

	"github.com/google/uuid"
)

// PostgresShiftsRepo 排班明细 Repository 实现
type PostgresShiftsRepo struct {
	db *sql.DB
}

func NewPostgresShiftsRepo(db *sql.DB) *PostgresShiftsRepo {
	return &PostgresShiftsRepo{db: db}
}

var _ ShiftsRepository = (*PostgresShiftsRepo)(nil)

const shiftColumns = `
	shift_id::text, employee_id, employee_name, department, shift_type,
	weekdays, start_time, end_time, created_at, updated_at`

func scanShift(row interface{ Scan(...any) error }) (*domain.ShiftDetail, error) {
	var s domain.ShiftDetail
	var weekdays []byte
	err := row.Scan(&s.ShiftID, &s.EmployeeID, &s.EmployeeName, &s.Department,
		&s.ShiftType, &weekdays, &s.StartTime, &s.EndTime, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := fromJSONB(weekdays, &s.Weekdays); err != nil {
		return nil, fmt.Errorf("failed to decode weekdays: %w", err)
	}
	return &s, nil
}

func (r *PostgresShiftsRepo) CreateShift(ctx context.Context, s *domain.ShiftDetail) (string, error) {
	if s.ShiftID == "" {
		s.ShiftID = uuid.NewString()
	}
	weekdays, err := toJSONB(s.Weekdays)
	if err != nil {
		return "", fmt.Errorf("failed to encode weekdays: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO shift_details (shift_id, employee_id, employee_name, department, shift_type,
			weekdays, start_time, end_time, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),NOW())`,
		s.ShiftID, s.EmployeeID, s.EmployeeName, s.Department, s.ShiftType,
		weekdays, s.StartTime, s.EndTime,
	)
	if err != nil {
		return "", storeErr("failed to create shift", err)
	}
	return s.ShiftID, nil
}

func (r *PostgresShiftsRepo) GetShift(ctx context.Context, shiftID string) (*domain.ShiftDetail, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+shiftColumns+` FROM shift_details WHERE shift_id = $1`, shiftID)
	s, err := scanShift(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("shift not found: %w", domain.ErrNotFound)
		}
		return nil, storeErr("failed to get shift", err)
	}
	return s, nil
}

func (r *PostgresShiftsRepo) ListShifts(ctx context.Context, filters *ShiftFilters, page, size int) ([]*domain.ShiftDetail, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	argN := 1
	if filters != nil {
		if filters.Department != "" {
			where = append(where, fmt.Sprintf("department = $%d", argN))
			args = append(args, filters.Department)
			argN++
		}
		if filters.EmployeeID != "" {
			where = append(where, fmt.Sprintf("employee_id = $%d", argN))
			args = append(args, filters.EmployeeID)
			argN++
		}
		if filters.ShiftType != "" {
			where = append(where, fmt.Sprintf("shift_type = $%d", argN))
			args = append(args, filters.ShiftType)
			argN++
		}
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM shift_details WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, storeErr("failed to count shifts", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM shift_details WHERE %s ORDER BY employee_name ASC LIMIT $%d OFFSET $%d`,
		shiftColumns, whereClause, argN, argN+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, storeErr("failed to list shifts", err)
	}
	defer rows.Close()

	items := []*domain.ShiftDetail{}
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, 0, storeErr("failed to scan shift", err)
		}
		items = append(items, s)
	}
	return items, total, storeErr("failed to list shifts", rows.Err())
}

func (r *PostgresShiftsRepo) UpdateShift(ctx context.Context, s *domain.ShiftDetail) error {
	weekdays, err := toJSONB(s.Weekdays)
	if err != nil {
		return fmt.Errorf("failed to encode weekdays: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE shift_details SET
			employee_id = $2, employee_name = $3, department = $4, shift_type = $5,
			weekdays = $6, start_time = $7, end_time = $8, updated_at = NOW()
		WHERE shift_id = $1`,
		s.ShiftID, s.EmployeeID, s.EmployeeName, s.Department, s.ShiftType,
		weekdays, s.StartTime, s.EndTime,
	)
	if err != nil {
		return storeErr("failed to update shift", err)
	}
	return requireRow(res, domain.ErrNotFound)
}

func (r *PostgresShiftsRepo) DeleteShift(ctx context.Context, shiftID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM shift_details WHERE shift_id = $1`, shiftID)
	if err != nil {
		return storeErr("failed to delete shift", err)
	}
	return requireRow(res, domain.ErrNotFound)
}
