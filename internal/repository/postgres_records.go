package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cmms-data/internal/domain"

	"github.com/google/uuid"
)

// PostgresRecordsRepository 记录 Repository 实现
type PostgresRecordsRepository struct {
	db *sql.DB
}

// NewPostgresRecordsRepo 创建记录 Repository
func NewPostgresRecordsRepo(db *sql.DB) *PostgresRecordsRepository {
	return &PostgresRecordsRepository{db: db}
}

var _ RecordsRepository = (*PostgresRecordsRepository)(nil)

const recordColumns = `
	record_id::text,
	kind,
	schedule_id,
	asset_id::text,
	asset_name,
	location,
	department,
	completed_date,
	start_time,
	end_time,
	actual_duration_hours,
	technician_id,
	technician_name,
	status,
	overall_condition,
	notes,
	results,
	admin_verified,
	admin_verified_by,
	admin_verified_at,
	admin_notes,
	created_at,
	updated_at`

func scanRecord(row interface{ Scan(...any) error }) (*domain.Record, error) {
	var rec domain.Record
	var scheduleID, startTime, endTime, notes, verifiedBy, adminNotes sql.NullString
	var verifiedAt sql.NullTime
	var results []byte

	err := row.Scan(
		&rec.RecordID,
		&rec.Kind,
		&scheduleID,
		&rec.AssetID,
		&rec.AssetName,
		&rec.Location,
		&rec.Department,
		&rec.CompletedDate,
		&startTime,
		&endTime,
		&rec.ActualDurationHours,
		&rec.TechnicianID,
		&rec.TechnicianName,
		&rec.Status,
		&rec.OverallCondition,
		&notes,
		&results,
		&rec.AdminVerified,
		&verifiedBy,
		&verifiedAt,
		&adminNotes,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.ScheduleID = scheduleID.String
	rec.StartTime = startTime.String
	rec.EndTime = endTime.String
	rec.Notes = notes.String
	rec.AdminVerifiedBy = verifiedBy.String
	rec.AdminNotes = adminNotes.String
	if verifiedAt.Valid {
		t := verifiedAt.Time
		rec.AdminVerifiedAt = &t
	}
	if err := fromJSONB(results, &rec.Results); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}
	return &rec, nil
}

// CreateRecord 创建记录（admin_verified 固定从 FALSE 开始）
func (r *PostgresRecordsRepository) CreateRecord(ctx context.Context, rec *domain.Record) (string, error) {
	if rec.RecordID == "" {
		rec.RecordID = uuid.NewString()
	}
	results, err := toJSONB(rec.Results)
	if err != nil {
		return "", fmt.Errorf("failed to encode results: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO records (
			record_id, kind, schedule_id, asset_id, asset_name, location, department,
			completed_date, start_time, end_time, actual_duration_hours,
			technician_id, technician_name, status, overall_condition, notes, results,
			admin_verified, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,FALSE,NOW(),NOW())`,
		rec.RecordID, rec.Kind, nullIfEmpty(rec.ScheduleID),
		rec.AssetID, rec.AssetName, rec.Location, rec.Department,
		rec.CompletedDate, nullIfEmpty(rec.StartTime), nullIfEmpty(rec.EndTime),
		rec.ActualDurationHours, rec.TechnicianID, rec.TechnicianName,
		rec.Status, rec.OverallCondition, nullIfEmpty(rec.Notes), results,
	)
	if err != nil {
		return "", storeErr("failed to create record", err)
	}
	return rec.RecordID, nil
}

// GetRecord 获取记录
func (r *PostgresRecordsRepository) GetRecord(ctx context.Context, recordID string) (*domain.Record, error) {
	if recordID == "" {
		return nil, domain.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE record_id = $1`, recordID)
	rec, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("record not found: %w", domain.ErrNotFound)
		}
		return nil, storeErr("failed to get record", err)
	}
	return rec, nil
}

// ListRecords 批量查询记录（支持过滤和分页）
func (r *PostgresRecordsRepository) ListRecords(ctx context.Context, filters *RecordFilters, page, size int) ([]*domain.Record, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	argN := 1

	if filters != nil {
		if filters.Kind != "" {
			where = append(where, fmt.Sprintf("kind = $%d", argN))
			args = append(args, filters.Kind)
			argN++
		}
		if filters.ScheduleID != "" {
			where = append(where, fmt.Sprintf("schedule_id = $%d", argN))
			args = append(args, filters.ScheduleID)
			argN++
		}
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
		if filters.TechnicianID != "" {
			where = append(where, fmt.Sprintf("technician_id = $%d", argN))
			args = append(args, filters.TechnicianID)
			argN++
		}
		if filters.Status != "" {
			where = append(where, fmt.Sprintf("status = $%d", argN))
			args = append(args, filters.Status)
			argN++
		}
		if filters.Verified != nil {
			where = append(where, fmt.Sprintf("admin_verified = $%d", argN))
			args = append(args, *filters.Verified)
			argN++
		}
		if filters.From != nil {
			where = append(where, fmt.Sprintf("completed_date >= $%d", argN))
			args = append(args, *filters.From)
			argN++
		}
		if filters.To != nil {
			where = append(where, fmt.Sprintf("completed_date <= $%d", argN))
			args = append(args, *filters.To)
			argN++
		}
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE `+whereClause, args...).Scan(&total)
	if err != nil {
		return nil, 0, storeErr("failed to count records", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM records WHERE %s
		ORDER BY completed_date DESC LIMIT $%d OFFSET $%d`,
		recordColumns, whereClause, argN, argN+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, storeErr("failed to list records", err)
	}
	defer rows.Close()

	items := []*domain.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, storeErr("failed to scan record", err)
		}
		items = append(items, rec)
	}
	return items, total, storeErr("failed to list records", rows.Err())
}

// UpdateRecord 更新记录的非审核字段。
// 刻意不出现 admin_verified / admin_verified_by / admin_verified_at / admin_notes。
func (r *PostgresRecordsRepository) UpdateRecord(ctx context.Context, rec *domain.Record) error {
	results, err := toJSONB(rec.Results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE records SET
			completed_date = $2,
			start_time = $3,
			end_time = $4,
			actual_duration_hours = $5,
			status = $6,
			overall_condition = $7,
			notes = $8,
			results = $9,
			updated_at = NOW()
		WHERE record_id = $1`,
		rec.RecordID, rec.CompletedDate,
		nullIfEmpty(rec.StartTime), nullIfEmpty(rec.EndTime),
		rec.ActualDurationHours, rec.Status, rec.OverallCondition,
		nullIfEmpty(rec.Notes), results,
	)
	if err != nil {
		return storeErr("failed to update record", err)
	}
	return requireRow(res, domain.ErrNotFound)
}

// VerifyRecord 审核记录。条件更新避免覆盖首次审核的署名和时间；
// 记录存在但已审核 → ErrConflict。
func (r *PostgresRecordsRepository) VerifyRecord(ctx context.Context, recordID, verifiedBy string, verifiedAt time.Time, notes string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE records SET
			admin_verified = TRUE,
			admin_verified_by = $2,
			admin_verified_at = $3,
			admin_notes = $4,
			updated_at = NOW()
		WHERE record_id = $1 AND admin_verified = FALSE`,
		recordID, verifiedBy, verifiedAt, nullIfEmpty(notes),
	)
	if err != nil {
		return storeErr("failed to verify record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("failed to verify record", err)
	}
	if n == 0 {
		// 区分不存在和已审核
		var verified bool
		err := r.db.QueryRowContext(ctx,
			`SELECT admin_verified FROM records WHERE record_id = $1`, recordID).Scan(&verified)
		if err == sql.ErrNoRows {
			return fmt.Errorf("record not found: %w", domain.ErrNotFound)
		}
		if err != nil {
			return storeErr("failed to verify record", err)
		}
		return fmt.Errorf("record already verified: %w", domain.ErrConflict)
	}
	return nil
}

// DeleteRecord 删除记录
func (r *PostgresRecordsRepository) DeleteRecord(ctx context.Context, recordID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM records WHERE record_id = $1`, recordID)
	if err != nil {
		return storeErr("failed to delete record", err)
	}
	return requireRow(res, domain.ErrNotFound)
}

// RecordStats 统计
func (r *PostgresRecordsRepository) RecordStats(ctx context.Context, kind domain.ScheduleKind, department string) (*RecordStats, error) {
	where := []string{"kind = $1"}
	args := []any{kind}
	if department != "" {
		where = append(where, "department = $2")
		args = append(args, department)
	}
	whereClause := strings.Join(where, " AND ")

	rows, err := r.db.QueryContext(ctx, `
		SELECT status, overall_condition, admin_verified, COUNT(*)
		FROM records
		WHERE `+whereClause+`
		GROUP BY 1, 2, 3`, args...)
	if err != nil {
		return nil, storeErr("failed to aggregate records", err)
	}
	defer rows.Close()

	stats := &RecordStats{
		ByStatus:    map[string]int{},
		ByCondition: map[string]int{},
	}
	for rows.Next() {
		var status, condition string
		var verified bool
		var count int
		if err := rows.Scan(&status, &condition, &verified, &count); err != nil {
			return nil, storeErr("failed to scan record stats", err)
		}
		stats.Total += count
		stats.ByStatus[status] += count
		stats.ByCondition[condition] += count
		if verified {
			stats.Verified += count
		} else {
			stats.Unverified += count
		}
	}
	return stats, storeErr("failed to aggregate records", rows.Err())
}
