package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cmms-data/internal/domain"

	"github.com/google/uuid"
)

// PostgresEmployeesRepo 员工 Repository 实现
type PostgresEmployeesRepo struct {
	db *sql.DB
}

func NewPostgresEmployeesRepo(db *sql.DB) *PostgresEmployeesRepo {
	return &PostgresEmployeesRepo{db: db}
}

var _ EmployeesRepository = (*PostgresEmployeesRepo)(nil)

const employeeColumns = `
	employee_id::text, name, email, phone, department, role, access_level,
	skills, shift_type, active, created_at, updated_at`

func scanEmployee(row interface{ Scan(...any) error }) (*domain.Employee, error) {
	var e domain.Employee
	var email, phone, shiftType sql.NullString
	var skills []byte
	err := row.Scan(&e.EmployeeID, &e.Name, &email, &phone, &e.Department,
		&e.Role, &e.AccessLevel, &skills, &shiftType, &e.Active, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Email = email.String
	e.Phone = phone.String
	e.ShiftType = domain.ShiftType(shiftType.String)
	if err := fromJSONB(skills, &e.Skills); err != nil {
		return nil, fmt.Errorf("failed to decode skills: %w", err)
	}
	return &e, nil
}

func (r *PostgresEmployeesRepo) CreateEmployee(ctx context.Context, e *domain.Employee) (string, error) {
	if e.EmployeeID == "" {
		e.EmployeeID = uuid.NewString()
	}
	skills, err := toJSONB(e.Skills)
	if err != nil {
		return "", fmt.Errorf("failed to encode skills: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO employees (employee_id, name, email, phone, department, role, access_level,
			skills, shift_type, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW(),NOW())`,
		e.EmployeeID, e.Name, nullIfEmpty(e.Email), nullIfEmpty(e.Phone),
		e.Department, e.Role, e.AccessLevel, skills, nullIfEmpty(string(e.ShiftType)), e.Active,
	)
	if err != nil {
		return "", storeErr("failed to create employee", err)
	}
	return e.EmployeeID, nil
}

func (r *PostgresEmployeesRepo) GetEmployee(ctx context.Context, employeeID string) (*domain.Employee, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE employee_id = $1`, employeeID)
	e, err := scanEmployee(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("employee not found: %w", domain.ErrNotFound)
		}
		return nil, storeErr("failed to get employee", err)
	}
	return e, nil
}

func (r *PostgresEmployeesRepo) ListEmployees(ctx context.Context, filters *EmployeeFilters, page, size int) ([]*domain.Employee, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	argN := 1
	if filters != nil {
		if filters.Department != "" {
			where = append(where, fmt.Sprintf("department = $%d", argN))
			args = append(args, filters.Department)
			argN++
		}
		if filters.Role != "" {
			where = append(where, fmt.Sprintf("role = $%d", argN))
			args = append(args, filters.Role)
			argN++
		}
		if filters.ShiftType != "" {
			where = append(where, fmt.Sprintf("shift_type = $%d", argN))
			args = append(args, filters.ShiftType)
			argN++
		}
		if filters.ActiveOnly {
			where = append(where, "active = TRUE")
		}
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM employees WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, storeErr("failed to count employees", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM employees WHERE %s ORDER BY name ASC LIMIT $%d OFFSET $%d`,
		employeeColumns, whereClause, argN, argN+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, storeErr("failed to list employees", err)
	}
	defer rows.Close()

	items := []*domain.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, storeErr("failed to scan employee", err)
		}
		items = append(items, e)
	}
	return items, total, storeErr("failed to list employees", rows.Err())
}

func (r *PostgresEmployeesRepo) UpdateEmployee(ctx context.Context, e *domain.Employee) error {
	skills, err := toJSONB(e.Skills)
	if err != nil {
		return fmt.Errorf("failed to encode skills: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE employees SET
			name = $2, email = $3, phone = $4, department = $5, role = $6,
			access_level = $7, skills = $8, shift_type = $9, active = $10, updated_at = NOW()
		WHERE employee_id = $1`,
		e.EmployeeID, e.Name, nullIfEmpty(e.Email), nullIfEmpty(e.Phone),
		e.Department, e.Role, e.AccessLevel, skills, nullIfEmpty(string(e.ShiftType)), e.Active,
	)
	if err != nil {
		return storeErr("failed to update employee", err)
	}
	return requireRow(res, domain.ErrNotFound)
}

func (r *PostgresEmployeesRepo) DeleteEmployee(ctx context.Context, employeeID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM employees WHERE employee_id = $1`, employeeID)
	if err != nil {
		return storeErr("failed to delete employee", err)
	}
	return requireRow(res, domain.ErrNotFound)
}
