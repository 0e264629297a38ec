package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cmms-data/internal/domain"

	"github.com/google/uuid"
)

// PostgresAssetsRepo 资产 Repository 实现
type PostgresAssetsRepo struct {
	db *sql.DB
}

func NewPostgresAssetsRepo(db *sql.DB) *PostgresAssetsRepo {
	return &PostgresAssetsRepo{db: db}
}

var _ AssetsRepository = (*PostgresAssetsRepo)(nil)

const assetColumns = `
	asset_id::text, name, tag, serial_number, category, location, department,
	status, purchase_date, warranty_date, notes, created_at, updated_at`

func scanAsset(row interface{ Scan(...any) error }) (*domain.Asset, error) {
	var a domain.Asset
	var tag, serial, category, location, notes sql.NullString
	var purchase, warranty sql.NullTime
	err := row.Scan(&a.AssetID, &a.Name, &tag, &serial, &category, &location,
		&a.Department, &a.Status, &purchase, &warranty, &notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Tag = tag.String
	a.SerialNumber = serial.String
	a.Category = category.String
	a.Location = location.String
	a.Notes = notes.String
	if purchase.Valid {
		t := purchase.Time
		a.PurchaseDate = &t
	}
	if warranty.Valid {
		t := warranty.Time
		a.WarrantyDate = &t
	}
	return &a, nil
}

func (r *PostgresAssetsRepo) CreateAsset(ctx context.Context, a *domain.Asset) (string, error) {
	if a.AssetID == "" {
		a.AssetID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO assets (asset_id, name, tag, serial_number, category, location, department,
			status, purchase_date, warranty_date, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW(),NOW())`,
		a.AssetID, a.Name, nullIfEmpty(a.Tag), nullIfEmpty(a.SerialNumber),
		nullIfEmpty(a.Category), nullIfEmpty(a.Location), a.Department,
		a.Status, a.PurchaseDate, a.WarrantyDate, nullIfEmpty(a.Notes),
	)
	if err != nil {
		return "", storeErr("failed to create asset", err)
	}
	return a.AssetID, nil
}

func (r *PostgresAssetsRepo) GetAsset(ctx context.Context, assetID string) (*domain.Asset, error) {
	if assetID == "" {
		return nil, domain.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE asset_id = $1`, assetID)
	a, err := scanAsset(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("asset not found: %w", domain.ErrNotFound)
		}
		return nil, storeErr("failed to get asset", err)
	}
	return a, nil
}

func (r *PostgresAssetsRepo) ListAssets(ctx context.Context, filters *AssetFilters, page, size int) ([]*domain.Asset, int, error) {
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
		if filters.Location != "" {
			where = append(where, fmt.Sprintf("location = $%d", argN))
			args = append(args, filters.Location)
			argN++
		}
		if filters.Status != "" {
			where = append(where, fmt.Sprintf("status = $%d", argN))
			args = append(args, filters.Status)
			argN++
		}
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assets WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, storeErr("failed to count assets", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM assets WHERE %s ORDER BY name ASC LIMIT $%d OFFSET $%d`,
		assetColumns, whereClause, argN, argN+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, storeErr("failed to list assets", err)
	}
	defer rows.Close()

	items := []*domain.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, 0, storeErr("failed to scan asset", err)
		}
		items = append(items, a)
	}
	return items, total, storeErr("failed to list assets", rows.Err())
}

func (r *PostgresAssetsRepo) UpdateAsset(ctx context.Context, a *domain.Asset) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE assets SET
			name = $2, tag = $3, serial_number = $4, category = $5, location = $6,
			department = $7, status = $8, purchase_date = $9, warranty_date = $10,
			notes = $11, updated_at = NOW()
		WHERE asset_id = $1`,
		a.AssetID, a.Name, nullIfEmpty(a.Tag), nullIfEmpty(a.SerialNumber),
		nullIfEmpty(a.Category), nullIfEmpty(a.Location), a.Department,
		a.Status, a.PurchaseDate, a.WarrantyDate, nullIfEmpty(a.Notes),
	)
	if err != nil {
		return storeErr("failed to update asset", err)
	}
	return requireRow(res, domain.ErrNotFound)
}

func (r *PostgresAssetsRepo) DeleteAsset(ctx context.Context, assetID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM assets WHERE asset_id = $1`, assetID)
	if err != nil {
		return storeErr("failed to delete asset", err)
	}
	return requireRow(res, domain.ErrNotFound)
}

func (r *PostgresAssetsRepo) AssetStats(ctx context.Context, department string) (map[string]int, error) {
	where := "TRUE"
	args := []any{}
	if department != "" {
		where = "department = $1"
		args = append(args, department)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM assets WHERE `+where+` GROUP BY status`, args...)
	if err != nil {
		return nil, storeErr("failed to aggregate assets", err)
	}
	defer rows.Close()

	stats := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, storeErr("failed to scan asset stats", err)
		}
		stats[status] = count
	}
	return stats, storeErr("failed to aggregate assets", rows.Err())
}
