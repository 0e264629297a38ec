package repository

import (
	"context"
	"database/sql"
	"fmt"

	"cmms-data/internal/domain"

	"github.com/google/uuid"
)

// PostgresDepartmentsRepo 部门 Repository 实现
type PostgresDepartmentsRepo struct {
	db *sql.DB
}

func NewPostgresDepartmentsRepo(db *sql.DB) *PostgresDepartmentsRepo {
	return &PostgresDepartmentsRepo{db: db}
}

var _ DepartmentsRepository = (*PostgresDepartmentsRepo)(nil)

func (r *PostgresDepartmentsRepo) CreateDepartment(ctx context.Context, d *domain.Department) (string, error) {
	if d.DepartmentID == "" {
		d.DepartmentID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO departments (department_id, name, description, head_name, head_email, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())`,
		d.DepartmentID, d.Name, nullIfEmpty(d.Description),
		nullIfEmpty(d.HeadName), nullIfEmpty(d.HeadEmail), d.Active,
	)
	if err != nil {
		return "", storeErr("failed to create department", err)
	}
	return d.DepartmentID, nil
}

func (r *PostgresDepartmentsRepo) GetDepartment(ctx context.Context, departmentID string) (*domain.Department, error) {
	var d domain.Department
	var description, headName, headEmail sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT department_id::text, name, description, head_name, head_email, active, created_at, updated_at
		FROM departments WHERE department_id = $1`, departmentID,
	).Scan(&d.DepartmentID, &d.Name, &description, &headName, &headEmail, &d.Active, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("department not found: %w", domain.ErrNotFound)
		}
		return nil, storeErr("failed to get department", err)
	}
	d.Description = description.String
	d.HeadName = headName.String
	d.HeadEmail = headEmail.String
	return &d, nil
}

func (r *PostgresDepartmentsRepo) ListDepartments(ctx context.Context, activeOnly bool, page, size int) ([]*domain.Department, int, error) {
	where := "TRUE"
	if activeOnly {
		where = "active = TRUE"
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM departments WHERE `+where).Scan(&total); err != nil {
		return nil, 0, storeErr("failed to count departments", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT department_id::text, name, description, head_name, head_email, active, created_at, updated_at
		FROM departments WHERE `+where+`
		ORDER BY name ASC LIMIT $1 OFFSET $2`, size, (page-1)*size)
	if err != nil {
		return nil, 0, storeErr("failed to list departments", err)
	}
	defer rows.Close()

	items := []*domain.Department{}
	for rows.Next() {
		var d domain.Department
		var description, headName, headEmail sql.NullString
		if err := rows.Scan(&d.DepartmentID, &d.Name, &description, &headName, &headEmail, &d.Active, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, 0, storeErr("failed to scan department", err)
		}
		d.Description = description.String
		d.HeadName = headName.String
		d.HeadEmail = headEmail.String
		items = append(items, &d)
	}
	return items, total, storeErr("failed to list departments", rows.Err())
}

func (r *PostgresDepartmentsRepo) UpdateDepartment(ctx context.Context, d *domain.Department) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE departments SET
			name = $2, description = $3, head_name = $4, head_email = $5, active = $6, updated_at = NOW()
		WHERE department_id = $1`,
		d.DepartmentID, d.Name, nullIfEmpty(d.Description),
		nullIfEmpty(d.HeadName), nullIfEmpty(d.HeadEmail), d.Active,
	)
	if err != nil {
		return storeErr("failed to update department", err)
	}
	return requireRow(res, domain.ErrNotFound)
}

func (r *PostgresDepartmentsRepo) DeleteDepartment(ctx context.Context, departmentID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM departments WHERE department_id = $1`, departmentID)
	if err != nil {
		return storeErr("failed to delete department", err)
	}
	return requireRow(res, domain.ErrNotFound)
}
