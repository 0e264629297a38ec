package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cmms-data/internal/domain"

	"github.com/google/uuid"
)

// PostgresPartsRepo 备件库存 Repository 实现
type PostgresPartsRepo struct {
	db *sql.DB
}

func NewPostgresPartsRepo(db *sql.DB) *PostgresPartsRepo {
	return &PostgresPartsRepo{db: db}
}

var _ PartsRepository = (*PostgresPartsRepo)(nil)

const partColumns = `
	part_id::text, name, part_number, category, department,
	quantity, min_quantity, unit_cost, location, created_at, updated_at`

func scanPart(row interface{ Scan(...any) error }) (*domain.Part, error) {
	var p domain.Part
	var partNumber, category, location sql.NullString
	err := row.Scan(&p.PartID, &p.Name, &partNumber, &category, &p.Department,
		&p.Quantity, &p.MinQuantity, &p.UnitCost, &location, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.PartNumber = partNumber.String
	p.Category = category.String
	p.Location = location.String
	return &p, nil
}

func (r *PostgresPartsRepo) CreatePart(ctx context.Context, p *domain.Part) (string, error) {
	if p.PartID == "" {
		p.PartID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO parts (part_id, name, part_number, category, department,
			quantity, min_quantity, unit_cost, location, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW(),NOW())`,
		p.PartID, p.Name, nullIfEmpty(p.PartNumber), nullIfEmpty(p.Category),
		p.Department, p.Quantity, p.MinQuantity, p.UnitCost, nullIfEmpty(p.Location),
	)
	if err != nil {
		return "", storeErr("failed to create part", err)
	}
	return p.PartID, nil
}

func (r *PostgresPartsRepo) GetPart(ctx context.Context, partID string) (*domain.Part, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+partColumns+` FROM parts WHERE part_id = $1`, partID)
	p, err := scanPart(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("part not found: %w", domain.ErrNotFound)
		}
		return nil, storeErr("failed to get part", err)
	}
	return p, nil
}

func (r *PostgresPartsRepo) ListParts(ctx context.Context, filters *PartFilters, page, size int) ([]*domain.Part, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	argN := 1
	if filters != nil {
		if filters.Department != "" {
			where = append(where, fmt.Sprintf("department = $%d", argN))
			args = append(args, filters.Department)
			argN++
		}
		if filters.Category != "" {
			where = append(where, fmt.Sprintf("category = $%d", argN))
			args = append(args, filters.Category)
			argN++
		}
		if filters.LowStock {
			where = append(where, "quantity <= min_quantity")
		}
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM parts WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, storeErr("failed to count parts", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM parts WHERE %s ORDER BY name ASC LIMIT $%d OFFSET $%d`,
		partColumns, whereClause, argN, argN+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, storeErr("failed to list parts", err)
	}
	defer rows.Close()

	items := []*domain.Part{}
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			return nil, 0, storeErr("failed to scan part", err)
		}
		items = append(items, p)
	}
	return items, total, storeErr("failed to list parts", rows.Err())
}

func (r *PostgresPartsRepo) UpdatePart(ctx context.Context, p *domain.Part) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE parts SET
			name = $2, part_number = $3, category = $4, department = $5,
			min_quantity = $6, unit_cost = $7, location = $8, updated_at = NOW()
		WHERE part_id = $1`,
		p.PartID, p.Name, nullIfEmpty(p.PartNumber), nullIfEmpty(p.Category),
		p.Department, p.MinQuantity, p.UnitCost, nullIfEmpty(p.Location),
	)
	if err != nil {
		return storeErr("failed to update part", err)
	}
	return requireRow(res, domain.ErrNotFound)
}

// AdjustQuantity 原子增减库存。条件里带上非负约束，
// 超扣时不落任何变更直接报 Conflict。
func (r *PostgresPartsRepo) AdjustQuantity(ctx context.Context, partID string, delta int) (int, error) {
	var newQty int
	err := r.db.QueryRowContext(ctx, `
		UPDATE parts SET quantity = quantity + $2, updated_at = NOW()
		WHERE part_id = $1 AND quantity + $2 >= 0
		RETURNING quantity`,
		partID, delta,
	).Scan(&newQty)
	if err == sql.ErrNoRows {
		// 区分不存在和余量不足
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT TRUE FROM parts WHERE part_id = $1`, partID).Scan(&exists); err == sql.ErrNoRows {
			return 0, fmt.Errorf("part not found: %w", domain.ErrNotFound)
		} else if err != nil {
			return 0, storeErr("failed to adjust quantity", err)
		}
		return 0, fmt.Errorf("insufficient stock: %w", domain.ErrConflict)
	}
	if err != nil {
		return 0, storeErr("failed to adjust quantity", err)
	}
	return newQty, nil
}

func (r *PostgresPartsRepo) DeletePart(ctx context.Context, partID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM parts WHERE part_id = $1`, partID)
	if err != nil {
		return storeErr("failed to delete part", err)
	}
	return requireRow(res, domain.ErrNotFound)
}
